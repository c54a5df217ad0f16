package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"coin_tracker/internal/domain"
)

// Placeholder is shown for any missing or non-numeric value.
const Placeholder = "—"

// Signal is the binary direction of a 24h change.
type Signal int

const (
	SignalNone Signal = iota
	SignalUp
	SignalDown
)

func (s Signal) String() string {
	switch s {
	case SignalUp:
		return "up"
	case SignalDown:
		return "down"
	default:
		return "none"
	}
}

// MarshalText lets Signal travel as "up"/"down"/"none" in JSON.
func (s Signal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText; unknown text is SignalNone.
func (s *Signal) UnmarshalText(b []byte) error {
	switch string(b) {
	case "up":
		*s = SignalUp
	case "down":
		*s = SignalDown
	default:
		*s = SignalNone
	}
	return nil
}

// Row is one display-ready table row.
type Row struct {
	ID        string `json:"id"`
	Icon      string `json:"icon"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Rank      string `json:"rank"`
	Price     string `json:"price"`
	Change    string `json:"change"`
	Signal    Signal `json:"signal"`
	Volume    string `json:"volume"`
	MarketCap string `json:"market_cap"`
}

// Formatter turns CoinRecords into display strings for one locale.
type Formatter struct {
	printer  *message.Printer
	currency string
}

// NewFormatter creates a Formatter. An unknown locale falls back to en-US.
func NewFormatter(locale, currencySymbol string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &Formatter{
		printer:  message.NewPrinter(tag),
		currency: currencySymbol,
	}
}

// Price renders a two-decimal price with the currency prefix.
func (f *Formatter) Price(v decimal.NullDecimal) string {
	if !v.Valid {
		return Placeholder
	}
	return f.currency + v.Decimal.StringFixed(2)
}

// Change renders a two-decimal percentage and its direction.
// Zero counts as up. A negative value that rounds to zero keeps its
// minus sign so the text agrees with SignalDown.
func (f *Formatter) Change(v decimal.NullDecimal) (string, Signal) {
	if !v.Valid {
		return Placeholder, SignalNone
	}
	s := v.Decimal.StringFixed(2)
	if !v.Decimal.IsNegative() {
		return s + "%", SignalUp
	}
	if !strings.HasPrefix(s, "-") {
		s = "-" + s
	}
	return s + "%", SignalDown
}

// Money renders a large amount with locale thousands grouping.
func (f *Formatter) Money(v decimal.NullDecimal) string {
	if !v.Valid {
		return Placeholder
	}
	fl, _ := v.Decimal.Float64()
	return f.currency + f.printer.Sprint(number.Decimal(fl, number.MaxFractionDigits(3)))
}

// Row formats a single record.
func (f *Formatter) Row(r domain.CoinRecord) Row {
	change, sig := f.Change(r.PriceChangePercentage24h)
	rank := Placeholder
	if r.MarketCapRank != nil {
		rank = strconv.Itoa(*r.MarketCapRank)
	}
	return Row{
		ID:        r.ID,
		Icon:      r.Image,
		Symbol:    strings.ToUpper(r.Symbol),
		Name:      r.Name,
		Rank:      rank,
		Price:     f.Price(r.CurrentPrice),
		Change:    change,
		Signal:    sig,
		Volume:    f.Money(r.TotalVolume),
		MarketCap: f.Money(r.MarketCap),
	}
}

// Rows formats records in order.
func (f *Formatter) Rows(records []domain.CoinRecord) []Row {
	out := make([]Row, len(records))
	for i, r := range records {
		out[i] = f.Row(r)
	}
	return out
}

// UpdatedAgo describes how long ago at was, relative to now.
func UpdatedAgo(at, now time.Time) string {
	if at.IsZero() {
		return "Not updated yet"
	}
	return "Updated " + humanize.RelTime(at, now, "ago", "from now")
}
