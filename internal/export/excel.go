package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"insaat/internal/core"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate flattens the payment set into a single-sheet workbook. Names
// are resolved at generation time; dangling references render as "-".
func (g *Generator) Generate(payments []core.Payment, res core.Resolver) ([]byte, error) {
	file := excelize.NewFile()

	sheet := "Payments"
	file.SetSheetName("Sheet1", sheet)
	if err := g.writePayments(file, sheet, payments, res); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writePayments(file *excelize.File, sheet string, payments []core.Payment, res core.Resolver) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{
		"Date",
		"Project",
		"Recipient",
		"Recipient Type",
		"Category",
		"Description",
		"Method",
		"Amount",
		"Status",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	for i, p := range payments {
		row := 2 + i
		project := fallback(res.ProjectName(string(p.ProjectID)))
		recipient, rtype, ok := res.RecipientInfo(string(p.RecipientID))
		if !ok {
			recipient = "-"
			rtype = ""
		}
		category := fallback(res.CategoryName(string(p.CategoryID)))

		set(fmt.Sprintf("A%d", row), p.PaymentDate.String())
		set(fmt.Sprintf("B%d", row), project)
		set(fmt.Sprintf("C%d", row), recipient)
		set(fmt.Sprintf("D%d", row), string(rtype))
		set(fmt.Sprintf("E%d", row), category)
		set(fmt.Sprintf("F%d", row), p.Description)
		set(fmt.Sprintf("G%d", row), string(p.Method))
		set(fmt.Sprintf("H%d", row), p.Amount.Float())
		set(fmt.Sprintf("I%d", row), string(p.Status))
	}

	_ = file.SetColWidth(sheet, "A", "A", 12)
	_ = file.SetColWidth(sheet, "B", "C", 28)
	_ = file.SetColWidth(sheet, "D", "E", 16)
	_ = file.SetColWidth(sheet, "F", "F", 40)
	_ = file.SetColWidth(sheet, "G", "G", 10)
	_ = file.SetColWidth(sheet, "H", "H", 14)
	_ = file.SetColWidth(sheet, "I", "I", 10)
	return nil
}

func fallback(name string, ok bool) string {
	if !ok {
		return "-"
	}
	return name
}
