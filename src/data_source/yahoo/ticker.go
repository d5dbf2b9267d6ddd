package yahoo

import (
	"context"
	"strings"

	"yfinance-go/src/extract"
	"yfinance-go/src/helpers"
	"yfinance-go/src/interfaces"
	"yfinance-go/src/logger"
	"yfinance-go/src/models"
	"yfinance-go/src/network"
	"yfinance-go/src/session"
)

const (
	quoteSummaryPath = "/v10/finance/quoteSummary/"
	chartPath        = "/v8/finance/chart/"
	optionsPath      = "/v7/finance/options/"
	newsPath         = "/v1/finance/search"
	quoteNewsPath    = "/v6/finance/quote/news"
	calendarPath     = "/v1/finance/calendar/earnings"

	infoModules = "assetProfile,summaryProfile,summaryDetail,quoteType,fundProfile,price,defaultKeyStatistics,financialData,calendarEvents"
)

var (
	summaryResult = extract.MustParsePath("quoteSummary.result[0]")
	chartResult   = extract.MustParsePath("chart.result[0]")
	optionDates   = extract.MustParsePath("optionChain.result[0].expirationDates")
)

// Ticker exposes the Yahoo Finance datasets of one symbol. Each Ticker owns a
// session; it is safe to share between goroutines but the poller never does.
type Ticker struct {
	Symbol  string
	Session *session.Manager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewTicker(symbol string, client interfaces.INetworkClient, cfg models.MSessionConfig, log *logger.Logger) (*Ticker, error) {
	if err := helpers.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewLogger(nil, "Ticker-"+symbol)
	}

	return &Ticker{
		Symbol:  symbol,
		Session: session.NewManager(client, cfg, log),
		Logger:  log,
	}, nil
}

// -----------------------------------------------------------------------------

// NewTickerFromConfig builds the network client described by cfg as well.
func NewTickerFromConfig(symbol string, cfg *models.MConfig) (*Ticker, error) {
	if err := helpers.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg, "Ticker-"+symbol)
	client, err := network.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewTicker(symbol, client, cfg.Session, log)
}

// -----------------------------------------------------------------------------
// quoteSummary
// -----------------------------------------------------------------------------

func (t *Ticker) quoteSummary(ctx context.Context, modules string, field ...extract.Step) (extract.Node, error) {
	doc, err := t.Session.Fetch(ctx, t.Symbol, quoteSummaryPath+t.Symbol, map[string]string{"modules": modules})
	if err != nil {
		return extract.Empty(), err
	}
	return doc.Walk(summaryResult.Append(field...)), nil
}

// Info returns the whole first quoteSummary result for the profile modules.
func (t *Ticker) Info(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, infoModules)
}

func (t *Ticker) Earnings(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "earnings", extract.Key("earnings"))
}

func (t *Ticker) EarningsDates(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "calendarEvents", extract.Key("calendarEvents"))
}

func (t *Ticker) Financials(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "financialData", extract.Key("financialData"))
}

// QuarterlyFinancials has no dedicated module upstream and mirrors Financials.
func (t *Ticker) QuarterlyFinancials(ctx context.Context) (extract.Node, error) {
	return t.Financials(ctx)
}

func (t *Ticker) MajorHolders(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "institutionOwnership,majorDirectHolders,majorHoldersBreakdown", extract.Key("majorHoldersBreakdown"))
}

func (t *Ticker) InstitutionalHolders(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "institutionOwnership", extract.Key("institutionOwnership"))
}

func (t *Ticker) MutualFundHolders(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "fundOwnership", extract.Key("fundOwnership"))
}

func (t *Ticker) Sustainability(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "esgScores", extract.Key("esgScores"))
}

func (t *Ticker) RecommendationsSummary(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "recommendationTrend", extract.Key("recommendationTrend"))
}

func (t *Ticker) CompanyOfficers(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "assetProfile", extract.Key("assetProfile"), extract.Key("companyOfficers"))
}

func (t *Ticker) BalanceSheet(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "balanceSheetHistory", extract.Key("balanceSheetHistory"))
}

func (t *Ticker) QuarterlyBalanceSheet(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "balanceSheetHistoryQuarterly", extract.Key("balanceSheetHistoryQuarterly"))
}

func (t *Ticker) IncomeStmt(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "incomeStatementHistory", extract.Key("incomeStatementHistory"))
}

func (t *Ticker) QuarterlyIncomeStmt(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "incomeStatementHistoryQuarterly", extract.Key("incomeStatementHistoryQuarterly"))
}

func (t *Ticker) Cashflow(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "cashFlowStatementHistory", extract.Key("cashFlowStatementHistory"))
}

func (t *Ticker) QuarterlyCashflow(ctx context.Context) (extract.Node, error) {
	return t.quoteSummary(ctx, "cashFlowStatementHistoryQuarterly", extract.Key("cashFlowStatementHistoryQuarterly"))
}

// -----------------------------------------------------------------------------
// chart
// -----------------------------------------------------------------------------

// History returns the raw chart document. Inputs are validated before any
// request goes out.
func (t *Ticker) History(ctx context.Context, periodDays int, interval string, autoAdjust bool) (extract.Node, error) {
	if err := helpers.ValidateHistory(periodDays, interval); err != nil {
		return extract.Empty(), err
	}

	params := map[string]string{
		"period":   helpers.DaysToPeriod(periodDays),
		"interval": interval,
		"events":   "div,splits",
	}
	if autoAdjust {
		params["adj"] = "true"
	}
	return t.Session.Fetch(ctx, t.Symbol, chartPath+t.Symbol, params)
}

// -----------------------------------------------------------------------------

// PriceHistory decodes History into cleaned, time-ordered bars.
func (t *Ticker) PriceHistory(ctx context.Context, periodDays int, interval string) ([]models.MStockPrice, error) {
	doc, err := t.History(ctx, periodDays, interval, true)
	if err != nil {
		return nil, err
	}
	return ParsePriceHistory(t.Symbol, doc, t.Logger)
}

// -----------------------------------------------------------------------------

func (t *Ticker) chartEvents(ctx context.Context, events string) (extract.Node, error) {
	doc, err := t.Session.Fetch(ctx, t.Symbol, chartPath+t.Symbol, map[string]string{
		"interval": "1d",
		"events":   events,
	})
	if err != nil {
		return extract.Empty(), err
	}
	return doc.Walk(chartResult.Append(extract.Key("events"))), nil
}

func (t *Ticker) Dividends(ctx context.Context) (extract.Node, error) {
	return t.chartEvents(ctx, "div")
}

func (t *Ticker) Splits(ctx context.Context) (extract.Node, error) {
	return t.chartEvents(ctx, "splits")
}

func (t *Ticker) Actions(ctx context.Context) (extract.Node, error) {
	return t.chartEvents(ctx, "div,splits")
}

// -----------------------------------------------------------------------------
// whole documents
// -----------------------------------------------------------------------------

func (t *Ticker) Recommendations(ctx context.Context) (extract.Node, error) {
	return t.Session.Fetch(ctx, t.Symbol, quoteNewsPath, map[string]string{"symbol": t.Symbol})
}

func (t *Ticker) Calendar(ctx context.Context) (extract.Node, error) {
	return t.Session.Fetch(ctx, t.Symbol, calendarPath, map[string]string{"symbol": t.Symbol})
}

func (t *Ticker) Options(ctx context.Context) (extract.Node, error) {
	return t.Session.Fetch(ctx, t.Symbol, optionsPath+t.Symbol, nil)
}

// OptionsForDate takes the expiry as a UNIX timestamp string.
func (t *Ticker) OptionsForDate(ctx context.Context, date string) (extract.Node, error) {
	if strings.TrimSpace(date) == "" {
		return extract.Empty(), helpers.NewValidationError("option date must not be empty")
	}
	return t.Session.Fetch(ctx, t.Symbol, optionsPath+t.Symbol, map[string]string{"date": date})
}

// OptionDates lists the expiry timestamps as strings; none yields an empty list.
func (t *Ticker) OptionDates(ctx context.Context) ([]string, error) {
	doc, err := t.Options(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Walk(optionDates).Strings(), nil
}

func (t *Ticker) News(ctx context.Context) (extract.Node, error) {
	return t.Session.Fetch(ctx, t.Symbol, newsPath, map[string]string{"q": t.Symbol})
}
