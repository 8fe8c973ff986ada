package models

// TimestampLayout is the format used for every timestamp persisted in
// profile documents ("last_modified", screenshot dates). Kept as a plain
// local-time string so the stored files stay human-readable.
const TimestampLayout = "2006-01-02 15:04:05"

// MaxScreenshots caps the number of screenshots kept per configuration.
// When a new screenshot would exceed the cap, the oldest one (index 0)
// is evicted first.
const MaxScreenshots = 2

// DefaultProfile is the primary profile created on first run. It can never
// be deleted.
const DefaultProfile = "default"

// AppConfig is the single process-wide configuration document. It is the
// registry of known profiles plus the optional super-admin credential.
// An empty SuperAdminHash means the admin role is unconfigured and admin
// verification always fails.
type AppConfig struct {
	Profiles       []string `json:"profiles"`
	CurrentProfile string   `json:"current_profile,omitempty"` // Last selected profile. Advisory only.
	SuperAdminHash string   `json:"super_admin_hash,omitempty"`
	SuperAdminSalt string   `json:"super_admin_salt,omitempty"`
}

// DefaultAppConfig returns a fresh copy of the configuration written on
// first run. Callers get their own slice so mutating the result never
// affects other copies.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Profiles: []string{DefaultProfile},
	}
}

// Screenshot is one stored chart capture for a configuration.
// ImageData is an opaque base64 blob; decoding/encoding is handled by the
// upload layer, the store only keeps it round-trippable.
type Screenshot struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	ImageData   string `json:"image_data"`
}

// ConfigRecord bundles everything tracked for one (asset, timeframe) pair.
// Every field is optional in the stored JSON: an absent key means "all
// defaults", and records are only materialized in a document on first write.
// Params carries no omitempty: an explicitly saved empty set must survive
// a save/load round trip instead of falling back to the defaults.
type ConfigRecord struct {
	Tested       bool              `json:"tested,omitempty"`
	Improved     bool              `json:"improved,omitempty"`
	Note         string            `json:"note,omitempty"`
	Params       map[string]string `json:"params"`
	Screenshots  []Screenshot      `json:"screenshots,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
}

// ProfileDocument maps a config ID (derived from asset + timeframe) to its
// record. One document is persisted per profile.
type ProfileDocument map[string]ConfigRecord

// ProfileStats summarizes a loaded profile document for the dashboard.
type ProfileStats struct {
	TotalConfigs           int     `json:"total_configs"`
	ConfigsTested          int     `json:"configs_tested"`
	ConfigsImproved        int     `json:"configs_improved"`
	ConfigsWithNotes       int     `json:"configs_with_notes"`
	ConfigsWithScreenshots int     `json:"configs_with_screenshots"`
	PercentTested          float64 `json:"percent_tested"`
	PercentImproved        float64 `json:"percent_improved"`
}

// defaultParams is the shared strategy parameter set used when a
// configuration has no stored params. Numeric-looking values are stored
// and compared as strings, never parsed.
var defaultParams = map[string]string{
	"Price Change Threshold (%)":  "0.11",
	"Kernel Timeframe":            "700",
	"ADX Length":                  "1",
	"ADX Level":                   "20",
	"Start Regression at Bar":     "70",
	"Lookback Window":             "5",
	"Relative Weighting":          "25",
	"Start Regression at Bar (2)": "0",
	"Lookback Window (2)":         "16",
	"Relative Weighting (2)":      "1",
	"Smooth Colors":               "2",
	"Bullish Color":               "#00FF00",
	"Bearish Color":               "#FF0000",
	"Inputs in status line":       "Yes",
}

// DefaultParams returns a copy of the default strategy parameter set.
// Always a fresh map; callers may mutate the result freely.
func DefaultParams() map[string]string {
	params := make(map[string]string, len(defaultParams))
	for k, v := range defaultParams {
		params[k] = v
	}
	return params
}

// AssetCategory groups tradeable symbols under a display name.
type AssetCategory struct {
	Name   string   `json:"name"`
	Assets []string `json:"assets"`
}

// AssetCategories is the catalog of assets offered by the dashboard,
// grouped by market type.
var AssetCategories = map[string]AssetCategory{
	"crypto": {
		Name: "Cryptocurrencies",
		Assets: []string{
			"BTC/USD", "ETH/USD", "BNB/USD", "XRP/USD", "ADA/USD",
			"SOL/USD", "DOT/USD", "DOGE/USD", "AVAX/USD", "LINK/USD",
		},
	},
	"forex": {
		Name: "Forex",
		Assets: []string{
			"EUR/USD", "GBP/USD", "USD/JPY", "USD/CHF", "USD/CAD",
			"AUD/USD", "NZD/USD", "EUR/GBP", "EUR/JPY", "GBP/JPY",
		},
	},
	"indices": {
		Name: "Indices",
		Assets: []string{
			"US500", "NASDAQ", "DJ30", "GER40", "UK100",
			"FRA40", "AUS200", "JP225", "HK50", "CHINA50",
		},
	},
}

// Timeframes lists the chart timeframes a configuration can be tracked on.
var Timeframes = []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d", "1w", "1M"}
