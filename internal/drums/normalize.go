package drums

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/drumtrack/drumtrack/internal/masterdata/companies"
	mdshared "github.com/drumtrack/drumtrack/internal/masterdata/shared"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// Canonical import fields.
const (
	fieldCode         = "code"
	fieldCompanyTaxID = "company_tax_id"
	fieldCompanyName  = "company_name"
	fieldName         = "name"
	fieldFeature      = "feature"
	fieldStockReceipt = "stock_receipt_date"
	fieldIssue        = "issue_date"
	fieldSupplierDue  = "supplier_return_due_date"
	fieldStatus       = "status"
)

// fieldAliases maps folded header spellings onto canonical fields. Keys are
// in the form produced by foldKey.
var fieldAliases = map[string]string{
	"code": fieldCode, "kod": fieldCode, "kodbebna": fieldCode, "drumcode": fieldCode, "numerbebna": fieldCode,

	"companytaxid": fieldCompanyTaxID, "taxid": fieldCompanyTaxID, "nip": fieldCompanyTaxID,
	"companynip": fieldCompanyTaxID, "nipfirmy": fieldCompanyTaxID, "nipkontrahenta": fieldCompanyTaxID,

	"companyname": fieldCompanyName, "company": fieldCompanyName, "firma": fieldCompanyName,
	"nazwafirmy": fieldCompanyName, "kontrahent": fieldCompanyName,

	"name": fieldName, "nazwa": fieldName, "nazwabebna": fieldName, "drumname": fieldName,

	"feature": fieldFeature, "cecha": fieldFeature, "cechabebna": fieldFeature,

	"stockreceiptdate": fieldStockReceipt, "dataprzyjecianastan": fieldStockReceipt,
	"dataprzyjecia": fieldStockReceipt, "receiptdate": fieldStockReceipt,

	"issuedate": fieldIssue, "datawydania": fieldIssue, "dispatchdate": fieldIssue,

	"supplierreturnduedate": fieldSupplierDue, "datazwrotudodostawcy": fieldSupplierDue,
	"terminzwrotu": fieldSupplierDue, "returnduedate": fieldSupplierDue, "duedate": fieldSupplierDue,

	"status": fieldStatus, "stan": fieldStatus,
}

// Letters NFD does not decompose.
var foldStroke = runes.Map(func(r rune) rune {
	switch r {
	case 'ł':
		return 'l'
	case 'Ł':
		return 'L'
	case 'ø':
		return 'o'
	case 'Ø':
		return 'O'
	}
	return r
})

// foldKey reduces a header to lowercase ASCII letters and digits so that
// "Data przyjęcia na stan", "DataPrzyjeciaNaStan" and "data_przyjecia_na_stan"
// compare equal.
func foldKey(raw string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), foldStroke, norm.NFC, cases.Fold())
	folded, _, err := transform.String(t, raw)
	if err != nil {
		folded = strings.ToLower(raw)
	}
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ImportRow is a drum in canonical shape plus the owning company's display name.
type ImportRow struct {
	Drum        Drum
	CompanyName string
}

// NormalizeImportRows maps heterogeneous import records onto canonical drums.
// Unknown columns are ignored. The first invalid row fails the whole batch.
func NormalizeImportRows(records []map[string]any) ([]ImportRow, error) {
	if len(records) == 0 {
		return nil, shared.Validation("rows", "must contain at least 1 item(s)")
	}
	rows := make([]ImportRow, 0, len(records))
	for i, record := range records {
		row, err := normalizeRecord(record)
		if err != nil {
			var e *shared.Error
			if errors.As(err, &e) {
				return nil, shared.Validation(fmt.Sprintf("rows[%d].%s", i, e.Field), "%s", e.Message)
			}
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func normalizeRecord(record map[string]any) (ImportRow, error) {
	fields := make(map[string]string, len(record))
	for key, value := range record {
		canonical, ok := fieldAliases[foldKey(key)]
		if !ok {
			continue
		}
		text := strings.TrimSpace(stringify(value))
		if text == "" {
			continue
		}
		fields[canonical] = text
	}

	d := Drum{
		Code:         fields[fieldCode],
		CompanyTaxID: companies.NormalizeTaxID(fields[fieldCompanyTaxID]),
		Name:         fields[fieldName],
		Feature:      fields[fieldFeature],
		Status:       fields[fieldStatus],
	}
	if d.Code == "" {
		return ImportRow{}, shared.Validation(fieldCode, "is required")
	}
	if d.CompanyTaxID == "" {
		return ImportRow{}, shared.Validation(fieldCompanyTaxID, "is required")
	}
	if d.Status == "" {
		d.Status = mdshared.StatusActive
	}

	for field, target := range map[string]**time.Time{
		fieldStockReceipt: &d.StockReceiptDate,
		fieldIssue:        &d.IssueDate,
		fieldSupplierDue:  &d.SupplierReturnDueDate,
	} {
		parsed, err := shared.ParseDate(fields[field])
		if err != nil {
			return ImportRow{}, shared.Validation(field, "%q is not a valid date", fields[field])
		}
		*target = parsed
	}
	return ImportRow{Drum: d, CompanyName: fields[fieldCompanyName]}, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
