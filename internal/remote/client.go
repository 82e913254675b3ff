// Package remote is the HTTP client of the remote recipe API. Reads go
// through the query cache; writes are never cached and invalidate the cached
// reads they affect.
//
// Every response uses the envelope {success, data, message[, pagination]}.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/querycache"
)

// ErrUnsuccessful is returned when the API answers with success=false.
var ErrUnsuccessful = errors.New("remote: unsuccessful response")

// TTLs are the cache lifetimes per resource family.
type TTLs struct {
	Recipes    time.Duration
	Reviews    time.Duration
	Categories time.Duration
	Default    time.Duration
}

// Client talks to the remote recipe API.
type Client struct {
	BaseURL string
	Prefix  string
	HTTP    *http.Client
	Cache   *querycache.Fetcher
	TTLs    TTLs
}

// New wires a Client whose reads share httpClient with the cache fetcher.
func New(baseURL, prefix string, httpClient *http.Client, cache *querycache.Cache, ttls TTLs) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Prefix:  "/" + strings.Trim(prefix, "/"),
		HTTP:    httpClient,
		Cache:   querycache.NewFetcher(cache, httpClient),
		TTLs:    ttls,
	}
}

// Pagination is the page metadata returned with recipe lists.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// RecipeQuery filters a recipe listing. Zero values are omitted.
type RecipeQuery struct {
	Category   string
	Difficulty string
	Search     string
	Page       int
	Limit      int
	Sort       string
}

// Params renders q as request parameters. Category "all" means no filter.
func (q RecipeQuery) Params() map[string]string {
	p := map[string]string{}
	if c := strings.TrimSpace(q.Category); c != "" && !strings.EqualFold(c, "all") {
		p["category"] = c
	}
	if d := strings.TrimSpace(q.Difficulty); d != "" {
		p["difficulty"] = d
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		p["search"] = s
	}
	if q.Page > 0 {
		p["page"] = strconv.Itoa(q.Page)
	}
	if q.Limit > 0 {
		p["limit"] = strconv.Itoa(q.Limit)
	}
	if s := strings.TrimSpace(q.Sort); s != "" {
		p["sort"] = s
	}
	return p
}

// RecipePage is one page of recipes.
type RecipePage struct {
	Recipes    []domain.Recipe `json:"recipes"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// ReviewUpdate is the body of a review update.
type ReviewUpdate struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (c *Client) url(path string) string {
	return c.BaseURL + c.Prefix + path
}

// ListRecipes returns one page of recipes.
func (c *Client) ListRecipes(ctx context.Context, q RecipeQuery) (RecipePage, error) {
	env, err := c.cachedGet(ctx, "/recipes", q.Params(), c.TTLs.Recipes)
	if err != nil {
		return RecipePage{}, err
	}
	page := RecipePage{Pagination: env.Pagination}
	if err := decodeData(env, &page.Recipes); err != nil {
		return RecipePage{}, err
	}
	return page, nil
}

// GetRecipe returns a single recipe.
func (c *Client) GetRecipe(ctx context.Context, id string) (domain.Recipe, error) {
	var r domain.Recipe
	env, err := c.cachedGet(ctx, recipePath(id), nil, c.TTLs.Recipes)
	if err != nil {
		return r, err
	}
	return r, decodeData(env, &r)
}

// ListCategories returns all recipe categories.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	env, err := c.cachedGet(ctx, "/categories", nil, c.TTLs.Categories)
	if err != nil {
		return nil, err
	}
	return out, decodeData(env, &out)
}

// ListFavorites returns the favorites the API holds for userID. The read
// always goes to the network: a cached answer could predate a local toggle.
func (c *Client) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	var out []domain.Favorite
	b, err := c.Cache.FetchCached(ctx, c.url("/favorites"), querycache.Options{
		Params:       favoritesParams(userID),
		TTL:          c.TTLs.Default,
		ForceRefresh: true,
	})
	if err != nil {
		return nil, err
	}
	env, err := parseEnvelope(b)
	if err != nil {
		return nil, err
	}
	return out, decodeData(env, &out)
}

// ForgetFavorites drops the cached favorites read of userID.
func (c *Client) ForgetFavorites(userID string) {
	key := querycache.Key(c.url("/favorites"), favoritesParams(userID))
	_, _ = c.Cache.Cache.InvalidateMatching("^" + regexp.QuoteMeta(key) + "$")
}

// ListReviews returns the reviews the API holds for a recipe.
func (c *Client) ListReviews(ctx context.Context, recipeID string) ([]domain.Review, error) {
	var out []domain.Review
	env, err := c.cachedGet(ctx, recipePath(recipeID)+"/reviews", nil, c.TTLs.Reviews)
	if err != nil {
		return nil, err
	}
	return out, decodeData(env, &out)
}

// ToggleFavorite flips the favorite state of recipeID for userID remotely.
func (c *Client) ToggleFavorite(ctx context.Context, recipeID, userID string) error {
	body := map[string]string{"recipe_id": recipeID, "user_identifier": userID}
	if _, err := c.send(ctx, http.MethodPost, "/favorites/toggle", body); err != nil {
		return err
	}
	c.invalidate("/favorites")
	return nil
}

// CreateReview posts a review for recipeID and returns the stored review.
func (c *Client) CreateReview(ctx context.Context, recipeID string, r domain.Review) (domain.Review, error) {
	body := map[string]any{
		"user_identifier": r.UserIdentifier,
		"rating":          r.Rating,
		"comment":         r.Comment,
	}
	env, err := c.send(ctx, http.MethodPost, recipePath(recipeID)+"/reviews", body)
	if err != nil {
		return domain.Review{}, err
	}
	c.invalidateRecipe(recipeID)
	var out domain.Review
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &out); err != nil {
			return domain.Review{}, fmt.Errorf("decode review: %w", err)
		}
	}
	return out, nil
}

// UpdateReview changes the rating and comment of a review.
func (c *Client) UpdateReview(ctx context.Context, reviewID string, u ReviewUpdate) (domain.Review, error) {
	env, err := c.send(ctx, http.MethodPut, "/reviews/"+url.PathEscape(reviewID), u)
	if err != nil {
		return domain.Review{}, err
	}
	c.invalidateReviewLists()
	var out domain.Review
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &out); err != nil {
			return domain.Review{}, fmt.Errorf("decode review: %w", err)
		}
	}
	return out, nil
}

// DeleteReview removes a review.
func (c *Client) DeleteReview(ctx context.Context, reviewID string) error {
	if _, err := c.send(ctx, http.MethodDelete, "/reviews/"+url.PathEscape(reviewID), nil); err != nil {
		return err
	}
	c.invalidateReviewLists()
	return nil
}

// Invalidate drops cached reads whose key matches pattern; an empty pattern
// drops everything.
func (c *Client) Invalidate(pattern string) (int, error) {
	if pattern == "" {
		n := c.Cache.Cache.Stats().Entries
		c.Cache.Cache.InvalidateAll()
		return n, nil
	}
	return c.Cache.Cache.InvalidateMatching(pattern)
}

func (c *Client) invalidate(path string) {
	_, _ = c.Cache.Cache.InvalidateMatching(regexp.QuoteMeta(c.Prefix + path))
}

// invalidateRecipe drops the cached detail and review list of one recipe.
func (c *Client) invalidateRecipe(recipeID string) {
	_, _ = c.Cache.Cache.InvalidateMatching(regexp.QuoteMeta(c.Prefix+recipePath(recipeID)) + `(\?|/reviews\?)`)
}

// invalidateReviewLists drops every cached review list. Review ids do not
// name their recipe, so an update or delete cannot target one list.
func (c *Client) invalidateReviewLists() {
	_, _ = c.Cache.Cache.InvalidateMatching(regexp.QuoteMeta(c.Prefix) + `/recipes/[^/?]+/reviews\?`)
}

func recipePath(id string) string { return "/recipes/" + url.PathEscape(id) }

func favoritesParams(userID string) map[string]string {
	return map[string]string{"user_identifier": userID}
}

func (c *Client) cachedGet(ctx context.Context, path string, params map[string]string, ttl time.Duration) (envelope, error) {
	if ttl <= 0 {
		ttl = c.TTLs.Default
	}
	b, err := c.Cache.FetchCached(ctx, c.url(path), querycache.Options{Params: params, TTL: ttl})
	if err != nil {
		return envelope{}, err
	}
	return parseEnvelope(b)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (envelope, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return envelope{}, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), rdr)
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return envelope{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(b, &env) == nil {
			se.Message = env.Message
		}
		return envelope{}, se
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return envelope{Success: true}, nil
	}
	return parseEnvelope(b)
}

// StatusError is a non-2xx answer to a write.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote: status %d", e.StatusCode)
}

func parseEnvelope(b []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Success {
		if env.Message != "" {
			return envelope{}, fmt.Errorf("%w: %s", ErrUnsuccessful, env.Message)
		}
		return envelope{}, ErrUnsuccessful
	}
	return env, nil
}

func decodeData(env envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// StatusCode extracts the HTTP status of a failed read or write, or 0 when
// err is not a status error.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var qe *querycache.StatusError
	if errors.As(err, &qe) {
		return qe.StatusCode
	}
	return 0
}
