package controller

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/forkify/kit"
	"github.com/hazyhaar/forkify/state"
)

// RegisterMCP registers the forkify tools on srv. Every tool answers with
// the affected data and the Markdown rendering of the view it changed.
func (c *Controller) RegisterMCP(srv *mcp.Server) {
	c.registerSearchTool(srv)
	c.registerResultsPageTool(srv)
	c.registerLoadRecipeTool(srv)
	c.registerUpdateServingsTool(srv)
	c.registerToggleBookmarkTool(srv)
	c.registerListBookmarksTool(srv)
	c.registerUploadRecipeTool(srv)
}

func (c *Controller) register(srv *mcp.Server, tool *mcp.Tool, ep kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	kit.RegisterMCPTool(srv, tool, kit.Logging(c.logger, tool.Name)(ep), decode)
}

// ResultsResponse is a page of search results.
type ResultsResponse struct {
	Query    string          `json:"query"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
	Total    int             `json:"total"`
	Results  []state.Summary `json:"results"`
	Markdown string          `json:"markdown"`
}

// RecipeResponse is the current recipe.
type RecipeResponse struct {
	Recipe   state.Recipe `json:"recipe"`
	Markdown string       `json:"markdown"`
}

// BookmarksResponse is the bookmark list.
type BookmarksResponse struct {
	Bookmarked *bool           `json:"bookmarked,omitempty"`
	Bookmarks  []state.Summary `json:"bookmarks"`
	Markdown   string          `json:"markdown"`
}

func (c *Controller) resultsResponse() (*ResultsResponse, error) {
	md, err := c.results.Markdown()
	if err != nil {
		return nil, err
	}
	s := c.store.Search()
	return &ResultsResponse{
		Query:    s.Query,
		Page:     s.Page,
		Pages:    s.Pages(),
		Total:    len(s.Results),
		Results:  c.store.CurrentResultsPage(),
		Markdown: md,
	}, nil
}

func (c *Controller) recipeResponse() (*RecipeResponse, error) {
	md, err := c.recipe.Markdown()
	if err != nil {
		return nil, err
	}
	r, _ := c.store.Recipe()
	return &RecipeResponse{Recipe: r, Markdown: md}, nil
}

func (c *Controller) bookmarksResponse() (*BookmarksResponse, error) {
	md, err := c.bookmarks.Markdown()
	if err != nil {
		return nil, err
	}
	marks := c.store.Bookmarks()
	out := make([]state.Summary, len(marks))
	for i, r := range marks {
		out[i] = state.Summary{ID: r.ID, Title: r.Title, Publisher: r.Publisher, Image: r.Image, Key: r.Key}
	}
	return &BookmarksResponse{Bookmarks: out, Markdown: md}, nil
}

// --- search ---

type searchReq struct {
	Query string `json:"query"`
}

func (c *Controller) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "forkify_search",
		Description: "Search recipes by keyword and return the first page of results.",
		InputSchema: kit.InputSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "Search term, e.g. pizza"},
		}, []string{"query"}),
	}
	ep := func(ctx context.Context, req any) (any, error) {
		r := req.(*searchReq)
		if err := c.Search(ctx, r.Query); err != nil {
			return nil, err
		}
		return c.resultsResponse()
	}
	c.register(srv, tool, ep, kit.DecodeArgs[searchReq]())
}

// --- results page ---

type pageReq struct {
	Page int `json:"page"`
}

func (c *Controller) registerResultsPageTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "forkify_results_page",
		Description: "Show another page of the last search results.",
		InputSchema: kit.InputSchema(map[string]any{
			"page": map[string]any{"type": "integer", "description": "1-based page number"},
		}, []string{"page"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*pageReq)
		if err := c.Paginate(r.Page); err != nil {
			return nil, err
		}
		return c.resultsResponse()
	}
	c.register(srv, tool, ep, kit.DecodeArgs[pageReq]())
}

// --- load recipe ---

type recipeReq struct {
	ID string `json:"id"`
}

func (c *Controller) registerLoadRecipeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "forkify_load_recipe",
		Description: "Load a recipe by id and make it the current recipe.",
		InputSchema: kit.InputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Recipe id"},
		}, []string{"id"}),
	}
	ep := func(ctx context.Context, req any) (any, error) {
		r := req.(*recipeReq)
		if err := c.ShowRecipe(ctx, r.ID); err != nil {
			return nil, err
		}
		return c.recipeResponse()
	}
	c.register(srv, tool, ep, kit.DecodeArgs[recipeReq]())
}

// --- servings ---

type servingsReq struct {
	Servings int `json:"servings"`
}

func (c *Controller) registerUpdateServingsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "forkify_update_servings",
		Description: "Rescale the current recipe's ingredients to a number of servings.",
		InputSchema: kit.InputSchema(map[string]any{
			"servings": map[string]any{"type": "integer", "description": "New serving count, at least 1"},
		}, []string{"servings"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*servingsReq)
		if err := c.UpdateServings(r.Servings); err != nil {
			return nil, err
		}
		return c.recipeResponse()
	}
	c.register(srv, tool, ep, kit.DecodeArgs[servingsReq]())
}

// --- bookmarks ---

func (c *Controller) registerToggleBookmarkTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "forkify_toggle_bookmark",
		Description: "Bookmark the current recipe, or remove its bookmark.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}
	ep := func(ctx context.Context, _ any) (any, error) {
		on, err := c.ToggleBookmark(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.bookmarksResponse()
		if err != nil {
			return nil, err
		}
		resp.Bookmarked = &on
		return resp, nil
	}
	c.register(srv, tool, ep, kit.DecodeArgs[struct{}]())
}

func (c *Controller) registerListBookmarksTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "forkify_list_bookmarks",
		Description: "List the bookmarked recipes.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}
	ep := func(_ context.Context, _ any) (any, error) {
		if err := c.ShowBookmarks(); err != nil {
			return nil, err
		}
		return c.bookmarksResponse()
	}
	c.register(srv, tool, ep, kit.DecodeArgs[struct{}]())
}

// --- upload ---

type uploadReq struct {
	Fields map[string]string `json:"fields"`
}

func (c *Controller) registerUploadRecipeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "forkify_upload_recipe",
		Description: "Upload a recipe. fields holds title, sourceUrl, image, publisher, cookingTime, servings " +
			"and ingredient-1..N as 'quantity,unit,description'.",
		InputSchema: kit.InputSchema(map[string]any{
			"fields": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
		}, []string{"fields"}),
	}
	ep := func(ctx context.Context, req any) (any, error) {
		r := req.(*uploadReq)
		if _, err := c.UploadRecipe(ctx, state.Draft(r.Fields)); err != nil {
			return nil, err
		}
		return c.recipeResponse()
	}
	c.register(srv, tool, ep, kit.DecodeArgs[uploadReq]())
}
