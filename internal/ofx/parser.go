// Package ofx parses OFX/QFX bank statements into transaction inputs.
package ofx

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"fintrack/internal/model"

	"github.com/aclindsa/ofxgo"
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Missing closing angle brackets in SGML-style OFX files
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX statement and returns transaction inputs
// ready to be created through the finance store. OFX signs amounts the
// same way the API does: negative for money out.
func (p *Parser) ParseFile(reader io.Reader) ([]model.TransactionInput, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var inputs []model.TransactionInput
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			inputs = append(inputs, p.convertList(stmt.BankTranList)...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			inputs = append(inputs, p.convertList(stmt.BankTranList)...)
		}
	}

	slog.Debug("Parsed OFX file",
		"transactions", len(inputs),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return inputs, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList) []model.TransactionInput {
	if list == nil {
		return nil
	}

	inputs := make([]model.TransactionInput, 0, len(list.Transactions))
	for _, tx := range list.Transactions {
		input, ok := p.convertTransaction(tx)
		if !ok {
			continue
		}
		inputs = append(inputs, input)
	}
	return inputs
}

func (p *Parser) convertTransaction(tx ofxgo.Transaction) (model.TransactionInput, bool) {
	amount, _ := tx.TrnAmt.Float64()
	if amount == 0 {
		return model.TransactionInput{}, false
	}

	title := p.extractTitle(tx)
	if title == "" {
		title = fmt.Sprintf("%v transaction", tx.TrnType)
	}

	description := strings.TrimSpace(string(tx.Memo))
	if description == title {
		description = ""
	}

	return model.TransactionInput{
		Title:       title,
		Description: description,
		Amount:      strconv.FormatFloat(amount, 'f', 2, 64),
	}, true
}

// extractTitle picks the cleanest available description for a statement
// line: PAYEE when present, otherwise NAME, otherwise MEMO.
func (p *Parser) extractTitle(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}
	if name := strings.TrimSpace(string(tx.Name)); name != "" {
		return name
	}
	return strings.TrimSpace(string(tx.Memo))
}
