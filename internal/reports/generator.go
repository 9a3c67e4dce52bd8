package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/tinybites/tinybites/internal/meallog"
	"github.com/tinybites/tinybites/internal/storage"
)

// Generator generates PDF/CSV feeding reports
type Generator struct {
	meals  storage.MealsStorage
	babies storage.BabiesStorage
}

// NewGenerator creates a new report generator
func NewGenerator(meals storage.MealsStorage, babies storage.BabiesStorage) *Generator {
	return &Generator{meals: meals, babies: babies}
}

// GenerateReport generates a report and returns the data
func (g *Generator) GenerateReport(ctx context.Context, ownerUserID string, req CreateReportRequest) ([]byte, error) {
	baby, found, err := g.babies.GetBaby(ctx, ownerUserID, req.BabyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch baby: %w", err)
	}
	if !found {
		return nil, ErrBabyNotFound
	}

	meals, err := g.collectMeals(ctx, ownerUserID, req.BabyID, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meals: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return g.generatePDF(baby, req, meals)
	case FormatCSV:
		return g.generateCSV(meals)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

// collectMeals walks the date range day by day, oldest first.
func (g *Generator) collectMeals(ctx context.Context, ownerUserID string, babyID uuid.UUID, from, to string) ([]storage.Meal, error) {
	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, err
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, err
	}

	var meals []storage.Meal
	for d := fromDate; !d.After(toDate); d = d.AddDate(0, 0, 1) {
		dayMeals, err := g.meals.ListMealsForDay(ctx, ownerUserID, babyID, d.Format("2006-01-02"))
		if err != nil {
			return nil, err
		}
		meals = append(meals, dayMeals...)
	}
	return meals, nil
}

// generateCSV generates a CSV report with one row per food per meal
func (g *Generator) generateCSV(meals []storage.Meal) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"date", "meal_type", "status", "food", "logged", "reaction", "amount", "allergy", "notes"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, meal := range meals {
		status := mealStatus(meal)
		if len(meal.PlannedFoods) == 0 {
			row := []string{meal.Date, meal.MealType, status, "", "", "", "", "", meal.Notes}
			if err := w.Write(row); err != nil {
				return nil, err
			}
			continue
		}
		for _, fl := range meal.PlannedFoods {
			row := []string{
				meal.Date,
				meal.MealType,
				status,
				fl.Food.Name,
				strconv.FormatBool(fl.Logged),
				fl.Reaction,
				fl.Amount,
				fl.Allergy,
				meal.Notes,
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// generatePDF generates a PDF report
func (g *Generator) generatePDF(baby storage.Baby, req CreateReportRequest, meals []storage.Meal) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Feeding Report")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Baby: %s", baby.Name))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s", req.From, req.To))
	pdf.Ln(12)

	summary := g.calculateSummary(meals)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Meals planned: %d", summary.MealsPlanned))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Meals completed: %d", summary.MealsCompleted))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Meals skipped: %d", summary.MealsSkipped))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Foods logged: %d", summary.FoodsLogged))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Unique foods tried: %d", summary.UniqueFoods))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Allergy reactions: %d", summary.AllergyReactions))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Meals")
	pdf.Ln(8)

	g.drawMealsTable(pdf, meals)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

// Summary holds calculated summary statistics
type Summary struct {
	MealsPlanned     int
	MealsCompleted   int
	MealsSkipped     int
	FoodsLogged      int
	UniqueFoods      int
	AllergyReactions int
}

func (g *Generator) calculateSummary(meals []storage.Meal) Summary {
	summary := Summary{MealsPlanned: len(meals)}
	uniqueLogged := map[string]bool{}

	for _, meal := range meals {
		if meal.Skipped {
			summary.MealsSkipped++
		}
		if meal.Completed {
			summary.MealsCompleted++
		}
		for _, fl := range meal.PlannedFoods {
			if fl.Logged {
				summary.FoodsLogged++
				uniqueLogged[fl.Food.ID] = true
			}
			if fl.Allergy == "mild" || fl.Allergy == "severe" {
				summary.AllergyReactions++
			}
		}
	}

	summary.UniqueFoods = len(uniqueLogged)
	return summary
}

// drawMealsTable draws a table of meals, limited to the most recent 40 rows
func (g *Generator) drawMealsTable(pdf *gofpdf.Fpdf, meals []storage.Meal) {
	limit := 40
	if len(meals) > limit {
		meals = meals[len(meals)-limit:]
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(22, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Meal", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(78, 6, "Foods", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Reactions", "1", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, meal := range meals {
		var foods, reactions []string
		for _, fl := range meal.PlannedFoods {
			foods = append(foods, fl.Food.Name)
			if fl.Reaction != "" {
				reactions = append(reactions, fmt.Sprintf("%s: %s", fl.Food.Name, fl.Reaction))
			}
		}

		pdf.CellFormat(22, 6, meal.Date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, meal.MealType, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, mealStatus(meal), "1", 0, "C", false, 0, "")
		pdf.CellFormat(78, 6, truncate(strings.Join(foods, ", "), 60), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, truncate(strings.Join(reactions, ", "), 38), "1", 1, "L", false, 0, "")
	}
}

func mealStatus(meal storage.Meal) string {
	if meal.Skipped {
		return "skipped"
	}
	return string(meallog.DeriveStatus(meal.PlannedFoods))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
