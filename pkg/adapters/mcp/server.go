package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/mise"
	"github.com/aretw0/mise/internal/logging"
	"github.com/aretw0/mise/pkg/catalog"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/view"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName = "mise-mcp"

	recipesURI = "mise://recipes"
	activeURI  = "mise://active"
)

// Kitchen is the subset of the mise facade exposed to MCP clients.
type Kitchen interface {
	Start(ctx context.Context, recipeID string) (domain.Session, error)
	Pause(recipeID string) (domain.Session, error)
	Resume(recipeID string) (domain.Session, error)
	SkipStep(recipeID string) (domain.Session, error)
	End() bool
	EndSession(recipeID string) error

	Active() (domain.Session, bool)

	Progress(ctx context.Context, recipeID string) (view.Progress, error)
	MiniPlayer(ctx context.Context) (view.MiniPlayer, bool, error)
	ListRecipes(ctx context.Context, q catalog.Query) ([]domain.Recipe, error)
}

var _ Kitchen = (*mise.Kitchen)(nil)

// RecipeSummary is the compact listing entry returned by list_recipes.
type RecipeSummary struct {
	ID            string            `json:"id" jsonschema_description:"Recipe identifier"`
	Title         string            `json:"title"`
	Cuisine       string            `json:"cuisine,omitempty"`
	Difficulty    domain.Difficulty `json:"difficulty,omitempty"`
	TotalDuration string            `json:"total_duration" jsonschema_description:"Total cooking time as MM:SS"`
	Steps         int               `json:"steps"`
	Favorite      bool              `json:"favorite,omitempty"`
}

// RecipeList wraps list_recipes output; structured results must be objects.
type RecipeList struct {
	Recipes []RecipeSummary `json:"recipes"`
}

// StatusResponse is returned by every cooking tool.
type StatusResponse struct {
	Progress view.Progress `json:"progress" jsonschema_description:"Cook page projection of the recipe"`
	Ended    bool          `json:"ended,omitempty" jsonschema_description:"True when the session was ended by this call"`
}

// Server exposes a Kitchen as an MCP server.
type Server struct {
	kitchen   Kitchen
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used by the SSE transport.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(kitchen Kitchen, opts ...Option) *Server {
	s := &Server{
		kitchen: kitchen,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer(serverName, strings.TrimSpace(mise.Version),
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_recipes",
		mcp.WithDescription("List saved recipes, optionally filtered by difficulty and sorted by total time."),
		mcp.WithString("difficulty", mcp.Description("Easy, Medium or Hard"), mcp.Enum("Easy", "Medium", "Hard")),
		mcp.WithString("sort", mcp.Description("asc or desc by total cooking time"), mcp.Enum("asc", "desc")),
		mcp.WithBoolean("favorites", mcp.Description("Only return favorite recipes")),
		mcp.WithOutputSchema[RecipeList](),
	), s.handleListRecipes)

	recipeArg := mcp.WithString("recipe_id", mcp.Required(), mcp.Description("ID of the recipe being cooked"))

	s.mcpServer.AddTool(mcp.NewTool("start_cooking",
		mcp.WithDescription("Start cooking a recipe. If it is already in progress it becomes the active session."),
		recipeArg,
		mcp.WithOutputSchema[StatusResponse](),
	), s.sessionHandler(func(ctx context.Context, id string) error {
		_, err := s.kitchen.Start(ctx, id)
		return err
	}))

	s.mcpServer.AddTool(mcp.NewTool("pause_cooking",
		mcp.WithDescription("Pause the countdown of a cooking session."),
		recipeArg,
		mcp.WithOutputSchema[StatusResponse](),
	), s.sessionHandler(func(_ context.Context, id string) error {
		_, err := s.kitchen.Pause(id)
		return err
	}))

	s.mcpServer.AddTool(mcp.NewTool("resume_cooking",
		mcp.WithDescription("Resume a paused cooking session."),
		recipeArg,
		mcp.WithOutputSchema[StatusResponse](),
	), s.sessionHandler(func(_ context.Context, id string) error {
		_, err := s.kitchen.Resume(id)
		return err
	}))

	s.mcpServer.AddTool(mcp.NewTool("skip_step",
		mcp.WithDescription("Finish the current step now; the next step starts on the following tick."),
		recipeArg,
		mcp.WithOutputSchema[StatusResponse](),
	), s.sessionHandler(func(_ context.Context, id string) error {
		_, err := s.kitchen.SkipStep(id)
		return err
	}))

	s.mcpServer.AddTool(mcp.NewTool("end_cooking",
		mcp.WithDescription("Cancel a cooking session. Without recipe_id the active session is ended."),
		mcp.WithString("recipe_id", mcp.Description("ID of the recipe being cooked (optional)")),
		mcp.WithOutputSchema[StatusResponse](),
	), s.handleEnd)

	s.mcpServer.AddTool(mcp.NewTool("cooking_status",
		mcp.WithDescription("Show progress for a recipe, or the mini player of the active session when recipe_id is omitted."),
		mcp.WithString("recipe_id", mcp.Description("ID of the recipe (optional)")),
	), s.handleStatus)
}

func (s *Server) handleListRecipes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		q   catalog.Query
		err error
	)
	if q.Difficulty, err = catalog.ParseDifficulty(request.GetString("difficulty", "")); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid list arguments", err), nil
	}
	if q.Sort, err = catalog.ParseSort(request.GetString("sort", "")); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid list arguments", err), nil
	}
	q.FavoritesOnly = request.GetBool("favorites", false)

	list, err := s.kitchen.ListRecipes(ctx, q)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list recipes failed", err), nil
	}
	out := RecipeList{Recipes: make([]RecipeSummary, 0, len(list))}
	for _, r := range list {
		out.Recipes = append(out.Recipes, summarize(r))
	}
	return mcp.NewToolResultStructuredOnly(out), nil
}

func summarize(r domain.Recipe) RecipeSummary {
	return RecipeSummary{
		ID:            r.ID,
		Title:         r.Title,
		Cuisine:       r.Cuisine,
		Difficulty:    r.Difficulty,
		TotalDuration: view.MMSS(r.TotalDurationSec()),
		Steps:         len(r.Steps),
		Favorite:      r.Favorite,
	}
}

// sessionHandler applies op to the recipe named by recipe_id and reports its progress.
func (s *Server) sessionHandler(op func(ctx context.Context, id string) error) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("recipe_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := op(ctx, id); err != nil {
			return mcp.NewToolResultErrorFromErr("cooking action failed", err), nil
		}
		p, err := s.kitchen.Progress(ctx, id)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("progress failed", err), nil
		}
		return mcp.NewToolResultStructuredOnly(StatusResponse{Progress: p}), nil
	}
}

func (s *Server) handleEnd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("recipe_id", "")
	if id == "" {
		active, ok := s.kitchen.Active()
		if !ok || !s.kitchen.End() {
			return mcp.NewToolResultError("no active session"), nil
		}
		id = active.RecipeID
	} else if err := s.kitchen.EndSession(id); err != nil {
		return mcp.NewToolResultErrorFromErr("end cooking failed", err), nil
	}

	p, err := s.kitchen.Progress(ctx, id)
	if err != nil {
		// The recipe may have vanished together with its session.
		p = view.Progress{RecipeID: id, Status: view.StatusNotStarted}
	}
	return mcp.NewToolResultStructuredOnly(StatusResponse{Progress: p, Ended: true}), nil
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := request.GetString("recipe_id", ""); id != "" {
		p, err := s.kitchen.Progress(ctx, id)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("progress failed", err), nil
		}
		return mcp.NewToolResultStructured(p, fmt.Sprintf("%s: step %d/%d, %s left, %s overall (%s)",
			p.Title, p.StepNumber, p.StepCount, p.StepRemaining, p.OverallRemaining, p.Status)), nil
	}

	mini, ok, err := s.kitchen.MiniPlayer(ctx)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("mini player failed", err), nil
	}
	if !ok {
		return mcp.NewToolResultText("Nothing is cooking."), nil
	}
	return mcp.NewToolResultStructured(mini, fmt.Sprintf("%s: %s", mini.Title, mini.Label)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(recipesURI, "Recipes",
		mcp.WithResourceDescription("Every saved recipe"),
		mcp.WithMIMEType("application/json"),
	), s.readRecipes)

	s.mcpServer.AddResource(mcp.NewResource(activeURI, "Active session",
		mcp.WithResourceDescription("Mini player of the session currently cooking, or null"),
		mcp.WithMIMEType("application/json"),
	), s.readActive)
}

func (s *Server) readRecipes(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := s.kitchen.ListRecipes(ctx, catalog.Query{})
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return jsonResource(recipesURI, list)
}

func (s *Server) readActive(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	mini, ok, err := s.kitchen.MiniPlayer(ctx)
	if err != nil {
		return nil, fmt.Errorf("mini player: %w", err)
	}
	if !ok {
		return jsonResource(activeURI, nil)
	}
	return jsonResource(activeURI, mini)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
