package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	//go:embed template/collector.txt
	collectorRaw string

	//go:embed template/closing.txt
	closingRaw string
)

// Config names the persona the agent speaks as.
type Config struct {
	AgentName      string `envconfig:"NAME" default:"Sarah"`
	BankName       string `envconfig:"BANK_NAME" split_words:"true" default:"ABC Bank"`
	CurrencySymbol string `envconfig:"CURRENCY_SYMBOL" split_words:"true" default:"₹"`
	CreditBureau   string `envconfig:"CREDIT_BUREAU" split_words:"true" default:"CIBIL"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.AgentName) == "" {
		return fmt.Errorf("%w: agent name is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.BankName) == "" {
		return fmt.Errorf("%w: bank name is required", contractx.ErrValidation)
	}
	return nil
}

// Builder renders the system instructions for each phase of a call.
// It holds no per-call state and is safe to share across sessions.
type Builder struct {
	cfg       Config
	printer   *message.Printer
	collector *einoprompt.DefaultChatTemplate
	closing   *einoprompt.DefaultChatTemplate
}

func NewBuilder(cfg Config) *Builder {
	if strings.TrimSpace(cfg.CreditBureau) == "" {
		cfg.CreditBureau = "credit"
	}
	return &Builder{
		cfg:       cfg,
		printer:   message.NewPrinter(language.English),
		collector: einoprompt.FromMessages(schema.FString, schema.SystemMessage(strings.TrimSpace(collectorRaw))),
		closing:   einoprompt.FromMessages(schema.FString, schema.SystemMessage(strings.TrimSpace(closingRaw))),
	}
}

// FormatAmount renders v with the configured currency symbol and thousands separators.
func (b *Builder) FormatAmount(v float64) string {
	return b.cfg.CurrencySymbol + b.printer.Sprintf("%.2f", v)
}

// Collector renders the opening persona and call script for customer.
func (b *Builder) Collector(ctx context.Context, customer contractx.Customer) (*schema.Message, error) {
	return b.render(ctx, b.collector, map[string]any{
		"agent_name":     b.cfg.AgentName,
		"bank_name":      b.cfg.BankName,
		"credit_bureau":  b.cfg.CreditBureau,
		"customer_name":  strings.TrimSpace(customer.Name),
		"overdue_amount": b.FormatAmount(customer.OverdueAmount),
	})
}

// Closing renders the instruction installed once a commitment is recorded.
func (b *Builder) Closing(ctx context.Context, repaymentDate string, amount float64) (*schema.Message, error) {
	return b.render(ctx, b.closing, map[string]any{
		"credit_bureau":  b.cfg.CreditBureau,
		"repayment_date": repaymentDate,
		"amount":         b.FormatAmount(amount),
	})
}

func (b *Builder) render(ctx context.Context, tpl *einoprompt.DefaultChatTemplate, vars map[string]any) (*schema.Message, error) {
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("%w: render prompt: %v", contractx.ErrValidation, err)
	}
	if len(msgs) != 1 || strings.TrimSpace(msgs[0].Content) == "" {
		return nil, fmt.Errorf("%w: prompt rendered %d messages", contractx.ErrValidation, len(msgs))
	}
	return msgs[0], nil
}
