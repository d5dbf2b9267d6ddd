package yahoo

import (
	"context"
	"sort"

	"yfinance-go/src/extract"
)

// Default chart window used when a dataset is fetched by name.
const (
	DefaultHistoryDays     = 30
	DefaultHistoryInterval = "1d"
)

// Dataset binds a stable name to a Ticker accessor so the CLI, the poller
// and the API can address accessors without a switch of their own.
type Dataset struct {
	Name        string
	Description string
	Fetch       func(ctx context.Context, t *Ticker) (extract.Node, error)
}

func accessor(fn func(*Ticker, context.Context) (extract.Node, error)) func(context.Context, *Ticker) (extract.Node, error) {
	return func(ctx context.Context, t *Ticker) (extract.Node, error) {
		return fn(t, ctx)
	}
}

// Datasets is every dataset addressable by name.
var Datasets = []Dataset{
	{Name: "info", Description: "profile, summary and key statistics", Fetch: accessor((*Ticker).Info)},
	{Name: "earnings", Description: "earnings module", Fetch: accessor((*Ticker).Earnings)},
	{Name: "earnings_dates", Description: "upcoming calendar events", Fetch: accessor((*Ticker).EarningsDates)},
	{Name: "financials", Description: "financial data module", Fetch: accessor((*Ticker).Financials)},
	{Name: "quarterly_financials", Description: "financial data module", Fetch: accessor((*Ticker).QuarterlyFinancials)},
	{Name: "major_holders", Description: "major holders breakdown", Fetch: accessor((*Ticker).MajorHolders)},
	{Name: "institutional_holders", Description: "institution ownership", Fetch: accessor((*Ticker).InstitutionalHolders)},
	{Name: "mutualfund_holders", Description: "fund ownership", Fetch: accessor((*Ticker).MutualFundHolders)},
	{Name: "sustainability", Description: "ESG scores", Fetch: accessor((*Ticker).Sustainability)},
	{Name: "recommendations_summary", Description: "analyst recommendation trend", Fetch: accessor((*Ticker).RecommendationsSummary)},
	{Name: "company_officers", Description: "company officers from the asset profile", Fetch: accessor((*Ticker).CompanyOfficers)},
	{Name: "balance_sheet", Description: "annual balance sheets", Fetch: accessor((*Ticker).BalanceSheet)},
	{Name: "quarterly_balance_sheet", Description: "quarterly balance sheets", Fetch: accessor((*Ticker).QuarterlyBalanceSheet)},
	{Name: "income_stmt", Description: "annual income statements", Fetch: accessor((*Ticker).IncomeStmt)},
	{Name: "quarterly_income_stmt", Description: "quarterly income statements", Fetch: accessor((*Ticker).QuarterlyIncomeStmt)},
	{Name: "cashflow", Description: "annual cash flow statements", Fetch: accessor((*Ticker).Cashflow)},
	{Name: "quarterly_cashflow", Description: "quarterly cash flow statements", Fetch: accessor((*Ticker).QuarterlyCashflow)},
	{Name: "dividends", Description: "dividend events", Fetch: accessor((*Ticker).Dividends)},
	{Name: "splits", Description: "split events", Fetch: accessor((*Ticker).Splits)},
	{Name: "actions", Description: "dividend and split events", Fetch: accessor((*Ticker).Actions)},
	{Name: "recommendations", Description: "quote news document", Fetch: accessor((*Ticker).Recommendations)},
	{Name: "calendar", Description: "earnings calendar document", Fetch: accessor((*Ticker).Calendar)},
	{Name: "options", Description: "option chain document", Fetch: accessor((*Ticker).Options)},
	{Name: "news", Description: "search results for the symbol", Fetch: accessor((*Ticker).News)},
	{
		Name:        "history",
		Description: "30 days of daily bars, raw chart document",
		Fetch: func(ctx context.Context, t *Ticker) (extract.Node, error) {
			return t.History(ctx, DefaultHistoryDays, DefaultHistoryInterval, true)
		},
	},
	{
		Name:        "price_history",
		Description: "30 days of daily bars, cleaned",
		Fetch: func(ctx context.Context, t *Ticker) (extract.Node, error) {
			prices, err := t.PriceHistory(ctx, DefaultHistoryDays, DefaultHistoryInterval)
			if err != nil {
				return extract.Empty(), err
			}
			return extract.NewNode(prices), nil
		},
	},
	{
		Name:        "option_dates",
		Description: "option expiry timestamps",
		Fetch: func(ctx context.Context, t *Ticker) (extract.Node, error) {
			dates, err := t.OptionDates(ctx)
			if err != nil {
				return extract.Empty(), err
			}
			return extract.NewNode(dates), nil
		},
	},
}

// -----------------------------------------------------------------------------

func LookupDataset(name string) (Dataset, bool) {
	for _, d := range Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}

func DatasetNames() []string {
	names := make([]string, 0, len(Datasets))
	for _, d := range Datasets {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}
