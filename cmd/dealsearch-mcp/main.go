package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// searchResponse mirrors the dealsearch API response; Error is set on
// failures only.
type searchResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    *struct {
		Name     string `json:"name"`
		Supplier string `json:"supplier"`
		Prices   struct {
			ListPrice        int    `json:"list_price"`
			SellPrice        int    `json:"sell_price"`
			Discount         int    `json:"discount"`
			IsoCodeCurrency  string `json:"isocode_currency"`
			CurrencyExponent int    `json:"currency_exponent"`
		} `json:"prices"`
	} `json:"data"`
}

func main() {
	apiURL := os.Getenv("DEALSEARCH_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("DEALSEARCH_API_KEY")

	s := server.NewMCPServer(
		"dealsearch",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	searchDealsTool := mcp.NewTool("search_deals",
		mcp.WithDescription("Search Groupon for deals and return the top result with its name, supplier and prices. Uses a headless browser, so a call can take up to a few minutes."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text search term, e.g. 'pizza' or 'spa day'"),
		),
		mcp.WithString("sort_option",
			mcp.Description("Result ordering (default: site relevance)"),
			mcp.Enum("relevance", "price:asc", "price:desc", "distance", "rating"),
		),
		mcp.WithNumber("price_min",
			mcp.Description("Lower price bound in major currency units"),
		),
		mcp.WithNumber("price_max",
			mcp.Description("Upper price bound in major currency units, at least price_min"),
		),
	)
	s.AddTool(searchDealsTool, handleSearchDeals(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleSearchDeals(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 200 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		params := url.Values{}
		params.Set("query", query)
		if sort := request.GetString("sort_option", ""); sort != "" {
			params.Set("sort_option", sort)
		}
		args := request.GetArguments()
		for _, key := range []string{"price_min", "price_max"} {
			if _, ok := args[key]; ok {
				params.Set(key, strconv.FormatFloat(request.GetFloat(key, 0), 'f', -1, 64))
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/search?"+params.Encode(), nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var searchResp searchResponse
		if err := json.Unmarshal(respBody, &searchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response (HTTP %d): %v", resp.StatusCode, err)), nil
		}

		if !searchResp.Success {
			errMsg := searchResp.Error
			if errMsg == "" {
				errMsg = "search failed"
			}
			return mcp.NewToolResultError(fmt.Sprintf("[HTTP %d] %s", resp.StatusCode, errMsg)), nil
		}

		return mcp.NewToolResultText(formatDeal(&searchResp)), nil
	}
}

// formatDeal renders a successful response as plain text for the model.
func formatDeal(r *searchResponse) string {
	if r.Data == nil {
		if r.Message != "" {
			return r.Message
		}
		return "No results found"
	}

	d := r.Data
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Deal: %s\n", d.Name))
	sb.WriteString(fmt.Sprintf("Supplier: %s\n", d.Supplier))
	sb.WriteString(fmt.Sprintf("Price: %s (was %s, %d%% off)\n",
		formatMoney(d.Prices.SellPrice, d.Prices.CurrencyExponent, d.Prices.IsoCodeCurrency),
		formatMoney(d.Prices.ListPrice, d.Prices.CurrencyExponent, d.Prices.IsoCodeCurrency),
		d.Prices.Discount,
	))
	return sb.String()
}

// formatMoney renders an amount in minor units, e.g. (4900, 2, "USD") → "49.00 USD".
func formatMoney(amount, exponent int, currency string) string {
	if exponent <= 0 {
		return fmt.Sprintf("%d %s", amount, currency)
	}
	div := 1
	for i := 0; i < exponent; i++ {
		div *= 10
	}
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%0*d %s", sign, amount/div, exponent, amount%div, currency)
}
