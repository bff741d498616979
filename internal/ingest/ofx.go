package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// Metadata keys set by ReadOFX.
const (
	MetaFITID   = "fitid"
	MetaAccount = "account"
	MetaType    = "type"
	MetaCheck   = "check_number"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// cardPrefixes are processor prefixes stripped from OFX names.
var cardPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
	"UPI/",
	"NEFT/",
	"IMPS/",
}

// preprocessOFX fixes common formatting issues in bank exports.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of a bare opening tag.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ReadOFX converts the bank and credit card statements of an OFX/QFX file
// into records. Amounts are made absolute (debits are negative in OFX), the
// statement's default currency is used and the FITID is kept as metadata.
func ReadOFX(r io.Reader) ([]RawRecord, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var records []RawRecord
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			bankStmts++
			records = append(records, convertStatement(stmt.BankTranList.Transactions,
				string(stmt.BankAcctFrom.AcctID), stmt.CurDef.String())...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			ccStmts++
			records = append(records, convertStatement(stmt.BankTranList.Transactions,
				string(stmt.CCAcctFrom.AcctID), stmt.CurDef.String())...)
		}
	}

	slog.Debug("Parsed OFX file",
		"records", len(records),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return records, nil
}

func convertStatement(txns []ofxgo.Transaction, accountID, currency string) []RawRecord {
	records := make([]RawRecord, 0, len(txns))
	for _, tx := range txns {
		records = append(records, convertTransaction(tx, accountID, currency))
	}
	return records
}

func convertTransaction(tx ofxgo.Transaction, accountID, currency string) RawRecord {
	meta := model.Metadata{
		MetaFITID: string(tx.FiTID),
		MetaType:  fmt.Sprintf("%v", tx.TrnType),
	}
	if accountID != "" {
		meta[MetaAccount] = accountID
	}
	if tx.CheckNum != "" {
		meta[MetaCheck] = string(tx.CheckNum)
	}

	return RawRecord{
		Date:     tx.DtPosted.Format("2006-01-02"),
		Merchant: extractMerchantName(tx),
		Amount:   strings.TrimPrefix(tx.TrnAmt.FloatString(2), "-"),
		Currency: currency,
		Metadata: meta,
	}
}

// extractMerchantName prefers PAYEE, then NAME, then MEMO when NAME is generic.
func extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range cardPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Drop a leading "MM/DD " posting date.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
