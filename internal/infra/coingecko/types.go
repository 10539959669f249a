package coingecko

import "cryptoverse/internal/domain"

// globalResponse wraps /global
type globalResponse struct {
	Data domain.GlobalStats `json:"data"`
}

// trendingResponse wraps /search/trending
type trendingResponse struct {
	Coins []struct {
		Item domain.TrendingCoin `json:"item"`
	} `json:"coins"`
}

// errorResponse is the body CoinGecko returns alongside most 4xx answers
type errorResponse struct {
	Error  string `json:"error"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

func (e errorResponse) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Status.ErrorMessage
}
