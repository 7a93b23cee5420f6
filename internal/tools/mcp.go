package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/logging"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/pinmeto"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/render"
)

// ServerName is the MCP implementation name announced to hosts.
const ServerName = "pinmeto-location-mcp"

const compareDescription = "Range to compare against. The comparison is made on whole-range totals, not per period."

// Response formats accepted by the responseFormat argument.
const (
	ResponseMarkdown = "markdown"
	ResponseJSON     = "json"
)

// NewServer builds an MCP server exposing every tool of svc.
func NewServer(svc *Service, version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTools(svc.ServerTools()...)
	return s
}

// ServerTools returns the tool definitions paired with their handlers.
func (s *Service) ServerTools() []server.ServerTool {
	networks := mcp.Enum("google", "facebook", "apple")
	aggregations := mcp.Enum("daily", "weekly", "monthly", "quarterly", "half-yearly", "yearly", "total")
	compare := mcp.Enum("none", "prior_period", "prior_year")

	return []server.ServerTool{
		{
			Tool: mcp.NewTool("pinmeto_get_location",
				mcp.WithDescription("Get the full details of one PinMeTo location by store id."),
				mcp.WithString("storeId", mcp.Required(), mcp.Description("Store id of the location")),
				formatArg(),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: handle(s, "pinmeto_get_location", s.GetLocation),
		},
		{
			Tool: mcp.NewTool("pinmeto_get_locations",
				mcp.WithDescription("List the account's locations from a short-lived cache, optionally filtered by text, city or active status."),
				mcp.WithString("search", mcp.Description("Case-insensitive text matched against store id, name, descriptor, street and city")),
				mcp.WithString("city", mcp.Description("Exact city name (case-insensitive)")),
				mcp.WithBoolean("activeOnly", mcp.Description("Only return active locations")),
				mcp.WithBoolean("forceRefresh", mcp.Description("Bypass the cache and refetch every page")),
				mcp.WithNumber("limit", mcp.Min(0), mcp.Description("Maximum number of locations to return (0 = all)")),
				formatArg(),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: handle(s, "pinmeto_get_locations", s.ListLocations),
		},
		{
			Tool: mcp.NewTool("pinmeto_get_insights",
				mcp.WithDescription("Get performance insights (views, searches, actions) for one network, aggregated by period and optionally compared with a prior range (totals over the whole range)."),
				mcp.WithString("network", mcp.Required(), networks, mcp.Description("Listing network")),
				mcp.WithString("storeId", mcp.Description("Store id; omit for the whole account")),
				mcp.WithString("from", mcp.Required(), mcp.Description("Start date, YYYY-MM-DD")),
				mcp.WithString("to", mcp.Required(), mcp.Description("End date, YYYY-MM-DD (inclusive)")),
				mcp.WithString("aggregation", aggregations, mcp.DefaultString("total"), mcp.Description("Period granularity")),
				mcp.WithString("compareWith", compare, mcp.DefaultString("none"), mcp.Description(compareDescription)),
				formatArg(),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: handle(s, "pinmeto_get_insights", s.Insights),
		},
		{
			Tool: mcp.NewTool("pinmeto_get_all_networks_insights",
				mcp.WithDescription("Get insights for Google, Facebook and Apple in one call. Networks that fail are reported as warnings."),
				mcp.WithString("storeId", mcp.Description("Store id; omit for the whole account")),
				mcp.WithString("from", mcp.Required(), mcp.Description("Start date, YYYY-MM-DD")),
				mcp.WithString("to", mcp.Required(), mcp.Description("End date, YYYY-MM-DD (inclusive)")),
				mcp.WithString("aggregation", aggregations, mcp.DefaultString("total"), mcp.Description("Period granularity")),
				mcp.WithString("compareWith", compare, mcp.DefaultString("none"), mcp.Description(compareDescription)),
				formatArg(),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: handle(s, "pinmeto_get_all_networks_insights", s.AllNetworksInsights),
		},
		{
			Tool: mcp.NewTool("pinmeto_get_ratings",
				mcp.WithDescription("Summarise ratings for one network: average, median, count, star distribution and reply rate."),
				mcp.WithString("network", mcp.Required(), networks, mcp.Description("Listing network")),
				mcp.WithString("storeId", mcp.Description("Store id; omit for the whole account")),
				mcp.WithString("from", mcp.Required(), mcp.Description("Start date, YYYY-MM-DD")),
				mcp.WithString("to", mcp.Required(), mcp.Description("End date, YYYY-MM-DD (inclusive)")),
				formatArg(),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: handle(s, "pinmeto_get_ratings", s.Ratings),
		},
		{
			Tool: mcp.NewTool("pinmeto_get_reviews",
				mcp.WithDescription("List individual reviews for one network, optionally filtered by star rating."),
				mcp.WithString("network", mcp.Required(), networks, mcp.Description("Listing network")),
				mcp.WithString("storeId", mcp.Description("Store id; omit for the whole account")),
				mcp.WithString("from", mcp.Required(), mcp.Description("Start date, YYYY-MM-DD")),
				mcp.WithString("to", mcp.Required(), mcp.Description("End date, YYYY-MM-DD (inclusive)")),
				mcp.WithNumber("minRating", mcp.Min(0), mcp.Max(5), mcp.Description("Lowest rating to include")),
				mcp.WithNumber("maxRating", mcp.Min(0), mcp.Max(5), mcp.Description("Highest rating to include")),
				mcp.WithNumber("limit", mcp.Min(0), mcp.Description("Maximum number of reviews to return (0 = all)")),
				formatArg(),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: handle(s, "pinmeto_get_reviews", s.Reviews),
		},
		{
			Tool: mcp.NewTool("pinmeto_get_keywords",
				mcp.WithDescription("Get the Google search keywords that surfaced the account's locations, ranked by impressions."),
				mcp.WithString("storeId", mcp.Description("Store id; omit for the whole account")),
				mcp.WithString("from", mcp.Required(), mcp.Description("First month, YYYY-MM")),
				mcp.WithString("to", mcp.Required(), mcp.Description("Last month, YYYY-MM")),
				mcp.WithNumber("limit", mcp.Min(0), mcp.Description(fmt.Sprintf("Number of keywords to return (default %d)", DefaultKeywordLimit))),
				formatArg(),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: handle(s, "pinmeto_get_keywords", s.Keywords),
		},
		{
			Tool: mcp.NewTool("pinmeto_cache_status",
				mcp.WithDescription("Show the state of the locations cache, optionally forcing a refresh."),
				mcp.WithBoolean("refresh", mcp.Description("Refetch every location page before reporting")),
				formatArg(),
			),
			Handler: handle(s, "pinmeto_cache_status", s.CacheStatus),
		},
	}
}

func formatArg() mcp.ToolOption {
	return mcp.WithString("responseFormat",
		mcp.Enum(ResponseMarkdown, ResponseJSON),
		mcp.DefaultString(ResponseMarkdown),
		mcp.Description("markdown for readable text, json for compact data"),
	)
}

// handle adapts a Service operation into an MCP tool handler. Failures are
// returned as tool results with IsError set, never as protocol errors.
func handle[In any](s *Service, name string, op func(context.Context, In) (*model.Result, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := logging.NewRequestID()
		ctx = logging.WithRequestID(ctx, id)
		log := logging.Ctx(ctx)
		started := time.Now()

		args := req.GetArguments()
		format, err := responseFormat(args)
		if err == nil {
			var in In
			if err = decodeArgs(args, &in); err == nil {
				var res *model.Result
				if res, err = op(ctx, in); err == nil {
					s.sess.Metrics.RecordToolCall(name, "ok", time.Since(started))
					log.Debug().Str("tool", name).Int("items", res.Stats.Items).Dur("took", time.Since(started)).Msg("tool call")
					return successResult(res, format)
				}
			}
		}

		e := pinmeto.AsError(err)
		s.sess.Metrics.RecordToolCall(name, string(e.Kind), time.Since(started))
		log.Warn().Str("tool", name).Str("kind", string(e.Kind)).Err(err).Msg("tool call failed")
		return errorResult(err), nil
	}
}

func responseFormat(args map[string]any) (string, error) {
	v, ok := args["responseFormat"]
	if !ok || v == nil {
		return ResponseMarkdown, nil
	}
	s, _ := v.(string)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ResponseMarkdown, render.FormatMD:
		return ResponseMarkdown, nil
	case ResponseJSON:
		return ResponseJSON, nil
	}
	return "", badRequest("unknown responseFormat %v (use json or markdown)", v)
}

func decodeArgs(args map[string]any, out interface{}) error {
	if len(args) == 0 {
		return nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return badRequest("arguments: %v", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return badRequest("arguments: %v", err)
	}
	return nil
}

func successResult(res *model.Result, format string) (*mcp.CallToolResult, error) {
	text := render.Markdown(res)
	if format == ResponseJSON {
		var err error
		if text, err = render.JSON(res); err != nil {
			return nil, fmt.Errorf("encoding result: %w", err)
		}
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(text)},
		StructuredContent: res,
	}, nil
}

// ToolError is the structured content of a failed tool call.
type ToolError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
	Retryable bool   `json:"retryable"`
	Guidance  string `json:"guidance"`
	Status    int    `json:"status,omitempty"`
}

func errorResult(err error) *mcp.CallToolResult {
	e := pinmeto.AsError(err)
	msg := e.Message
	if error(e) != err {
		msg = err.Error()
	}
	te := ToolError{
		Error:     msg,
		ErrorCode: string(e.Kind),
		Retryable: e.Retryable,
		Guidance:  e.Guidance(),
		Status:    e.Status,
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(fmt.Sprintf("Error [%s]: %s\n\n%s", te.ErrorCode, te.Error, te.Guidance))},
		StructuredContent: te,
		IsError:           true,
	}
}
