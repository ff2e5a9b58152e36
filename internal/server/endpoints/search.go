package endpoints

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/svcctx"
	"github.com/jackzampolin/wikibook/internal/wiki"
)

// SearchResponse lists matching wiki pages.
type SearchResponse struct {
	Query   string              `json:"query"`
	Results []wiki.SearchResult `json:"results"`
}

// CategoriesResponse lists matching categories.
type CategoriesResponse struct {
	Categories []wiki.Category `json:"categories"`
}

// CategoryPagesResponse lists the pages of one category.
type CategoryPagesResponse struct {
	Category string                `json:"category"`
	Pages    []wiki.CategoryMember `json:"pages"`
}

// queryLimit reads the optional limit parameter. Zero means the default.
func queryLimit(r *http.Request) (int, bool) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// SearchEndpoint handles GET /api/search.
type SearchEndpoint struct{}

func (e *SearchEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/search", e.handler
}

func (e *SearchEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Search wiki pages
//	@Description	Full text search, optionally within one category. Excluded categories are filtered out.
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	true	"Search text"
//	@Param			category	query		string	false	"Category name without prefix"
//	@Param			limit		query		int		false	"Maximum results"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		502			{object}	ErrorResponse
//	@Router			/api/search [get]
func (e *SearchEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, ok := queryLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	wc := svcctx.WikiFrom(r.Context())
	if wc == nil {
		writeError(w, http.StatusServiceUnavailable, "wiki client not initialized")
		return
	}

	results, err := wc.SearchPages(r.Context(), q, wiki.SearchOptions{
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []wiki.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: q, Results: results})
}

func (e *SearchEndpoint) Command(getServerURL func() string) *cobra.Command {
	var category string
	var limit int
	cmd := &cobra.Command{
		Use:   "pages <query>",
		Short: "Search wiki pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{"q": {args[0]}}
			if category != "" {
				params.Set("category", category)
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			client := api.NewClient(getServerURL())
			var resp SearchResponse
			if err := client.Get(cmd.Context(), "/api/search?"+params.Encode(), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Search within this category")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results (default from config)")
	return cmd
}

// SearchTitlesEndpoint handles GET /api/search/titles.
type SearchTitlesEndpoint struct{}

func (e *SearchTitlesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/search/titles", e.handler
}

func (e *SearchTitlesEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Search page titles
//	@Description	Title prefix search for autocomplete
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Title prefix"
//	@Param			limit	query		int		false	"Maximum results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/search/titles [get]
func (e *SearchTitlesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, ok := queryLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	wc := svcctx.WikiFrom(r.Context())
	if wc == nil {
		writeError(w, http.StatusServiceUnavailable, "wiki client not initialized")
		return
	}

	results, err := wc.SearchTitles(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []wiki.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: q, Results: results})
}

func (e *SearchTitlesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "titles <prefix>",
		Short: "Search page titles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{"q": {args[0]}}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			client := api.NewClient(getServerURL())
			var resp SearchResponse
			if err := client.Get(cmd.Context(), "/api/search/titles?"+params.Encode(), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results (default from config)")
	return cmd
}

// SearchCategoriesEndpoint handles GET /api/categories.
type SearchCategoriesEndpoint struct{}

func (e *SearchCategoriesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/categories", e.handler
}

func (e *SearchCategoriesEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Search categories
//	@Description	List categories whose name starts with prefix
//	@Tags			search
//	@Produce		json
//	@Param			prefix	query		string	true	"Category name prefix"
//	@Success		200		{object}	CategoriesResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/categories [get]
func (e *SearchCategoriesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	wc := svcctx.WikiFrom(r.Context())
	if wc == nil {
		writeError(w, http.StatusServiceUnavailable, "wiki client not initialized")
		return
	}

	cats, err := wc.SearchCategories(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cats == nil {
		cats = []wiki.Category{}
	}
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: cats})
}

func (e *SearchCategoriesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "categories <prefix>",
		Short: "Search categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CategoriesResponse
			path := "/api/categories?" + url.Values{"prefix": {args[0]}}.Encode()
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CategoryPagesEndpoint handles GET /api/categories/{name}/pages.
type CategoryPagesEndpoint struct{}

func (e *CategoryPagesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/categories/{name}/pages", e.handler
}

func (e *CategoryPagesEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		List category pages
//	@Description	List every page in a category
//	@Tags			search
//	@Produce		json
//	@Param			name	path		string	true	"Category name without prefix"
//	@Success		200		{object}	CategoryPagesResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/categories/{name}/pages [get]
func (e *CategoryPagesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "category name is required")
		return
	}

	wc := svcctx.WikiFrom(r.Context())
	if wc == nil {
		writeError(w, http.StatusServiceUnavailable, "wiki client not initialized")
		return
	}

	members, err := wc.CategoryMembers(r.Context(), name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if members == nil {
		members = []wiki.CategoryMember{}
	}
	writeJSON(w, http.StatusOK, CategoryPagesResponse{Category: name, Pages: members})
}

func (e *CategoryPagesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "category <name>",
		Short: "List the pages in a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CategoryPagesResponse
			path := "/api/categories/" + url.PathEscape(args[0]) + "/pages"
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
