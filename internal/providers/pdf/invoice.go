package pdf

import (
	"context"
	"fmt"

	"github.com/cablebill/cablebill/internal/bill/format"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// InvoiceData is everything printed on a bill. Amounts are minor units.
type InvoiceData struct {
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
	CompanyEmail   string

	InvoiceNumber string
	BillMonth     string
	IssueDate     string
	DueDate       string
	Status        string

	CustomerName    string
	CustomerAddress string
	CustomerArea    string
	CustomerPhone   string
	STBNumber       string

	PlanName        string
	PlanDescription string

	CurrentCharges  int64
	PreviousBalance int64
	TotalDue        int64
	PaidAmount      int64
	Remaining       int64
}

type MarotoRenderer struct{}

func New() Renderer {
	return &MarotoRenderer{}
}

var (
	white      = &props.Color{Red: 255, Green: 255, Blue: 255}
	labelText  = props.Text{Size: 9, Style: fontstyle.Bold}
	valueText  = props.Text{Size: 9, Align: align.Right}
	smallText  = props.Text{Size: 9}
	headerText = props.Text{Size: 9, Style: fontstyle.Bold, Color: white}
)

func (r *MarotoRenderer) RenderInvoice(ctx context.Context, data InvoiceData) ([]byte, error) {
	if data.InvoiceNumber == "" {
		return nil, fmt.Errorf("invoice number is required")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	// company header
	m.AddRow(12,
		text.NewCol(8, data.CompanyName, props.Text{Size: 18, Style: fontstyle.Bold}),
		text.NewCol(4, "INVOICE", props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(14,
		col.New(8).Add(
			text.New(data.CompanyAddress, props.Text{Size: 9}),
			text.New(joinNonEmpty(data.CompanyPhone, data.CompanyEmail), props.Text{Size: 9, Top: 5}),
		),
		col.New(4),
	)
	m.AddRow(4, line.NewCol(12))

	// invoice meta and bill-to
	m.AddRow(30,
		col.New(6).Add(
			text.New("Bill To", labelText),
			text.New(data.CustomerName, props.Text{Size: 10, Top: 5}),
			text.New(data.CustomerAddress, props.Text{Size: 9, Top: 10}),
			text.New(joinNonEmpty(data.CustomerArea, data.CustomerPhone), props.Text{Size: 9, Top: 15}),
			text.New(stbLine(data.STBNumber), props.Text{Size: 9, Top: 20}),
		),
		col.New(6).Add(
			text.New("Invoice No: "+data.InvoiceNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Bill Month: "+data.BillMonth, props.Text{Size: 9, Top: 5, Align: align.Right}),
			text.New("Issue Date: "+data.IssueDate, props.Text{Size: 9, Top: 10, Align: align.Right}),
			text.New("Due Date: "+data.DueDate, props.Text{Size: 9, Top: 15, Align: align.Right}),
			text.New("Status: "+data.Status, props.Text{Size: 9, Top: 20, Align: align.Right, Style: fontstyle.Bold}),
		),
	)

	// line item
	m.AddRow(8,
		text.NewCol(9, "Description", headerText),
		text.NewCol(3, "Amount", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right, Color: white}),
	).WithStyle(&props.Cell{BackgroundColor: &props.Color{Red: 55, Green: 65, Blue: 81}})
	m.AddRow(12,
		col.New(9).Add(
			text.New(data.PlanName, smallText),
			text.New(data.PlanDescription, props.Text{Size: 8, Top: 4}),
		),
		text.NewCol(3, format.Amount(data.CurrentCharges), valueText),
	)
	m.AddRow(4, line.NewCol(12))

	// summary
	summary := []struct {
		label  string
		amount int64
		bold   bool
	}{
		{"Current Charges", data.CurrentCharges, false},
		{"Previous Balance", data.PreviousBalance, false},
		{"Total Due", data.TotalDue, true},
		{"Paid", data.PaidAmount, false},
		{"Balance Remaining", data.Remaining, true},
	}
	for _, row := range summary {
		label, value := smallText, valueText
		if row.bold {
			label, value = labelText, props.Text{Size: 9, Align: align.Right, Style: fontstyle.Bold}
		}
		m.AddRow(7,
			col.New(6),
			text.NewCol(3, row.label, label),
			text.NewCol(3, format.Rupees(row.amount), value),
		)
	}

	m.AddRow(20,
		text.NewCol(12, "Please pay before the due date to avoid disconnection. Thank you for your business!",
			props.Text{Size: 8, Top: 10, Align: align.Center, Style: fontstyle.Italic}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " | " + b
}

func stbLine(stb string) string {
	if stb == "" {
		return ""
	}
	return "STB: " + stb
}
