package metals

// HistoryItem is one raw record from the history provider. Prices arrive as
// decimal strings and days carry a redundant midnight time component
// ("YYYY-MM-DD HH:MM:SS"); parsing normalizes both.
type HistoryItem struct {
	Day      string `json:"day"`
	MaxPrice string `json:"max_price"`
}
