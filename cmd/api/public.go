package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"vitrine/internal/cache"
	"vitrine/internal/domain/banners"
	"vitrine/internal/domain/catalog"
	"vitrine/internal/domain/crud"
	"vitrine/internal/domain/settings"
	"vitrine/internal/params"
)

const (
	defaultProductsLimit = 8
	maxProductsLimit     = 50
)

// loadSettings returns the store configuration, served from the cache when
// possible. Used by the maintenance check on every public request.
func (app *application) loadSettings(ctx context.Context) (*settings.StoreConfiguration, error) {
	const key = "settings:config"

	k := app.cache.Key(key, cache.TagSettings)
	if data, ok := app.cache.Lookup(k); ok {
		var cfg settings.StoreConfiguration
		if err := json.Unmarshal(data, &cfg); err == nil {
			return &cfg, nil
		}
	}

	cfg, err := app.store.Settings.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(cfg); err == nil {
		if err := app.cache.Store(k, data); err != nil {
			app.logger.Warnw("cache set failed", "key", key, "error", err)
		}
	}
	return cfg, nil
}

// cachedJSON answers from the cache or runs load and caches its result under
// tags. The key is resolved before load, so a mutation that lands while load
// runs keeps its result out of the cache.
func (app *application) cachedJSON(w http.ResponseWriter, r *http.Request, key string, tags []string, load func(ctx context.Context) (any, error)) {
	k := app.cache.Key(key, tags...)
	if data, ok := app.cache.Lookup(k); ok {
		writeCached(w, "HIT", data)
		return
	}

	v, err := load(r.Context())
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			app.notFoundResponse(w, r, productNotFoundMessage)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if err := app.cache.Store(k, data); err != nil {
		app.logger.Warnw("cache set failed", "key", key, "error", err)
	}
	writeCached(w, "MISS", data)
}

func writeCached(w http.ResponseWriter, status string, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", status)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (app *application) publicURL(path *string) *string {
	if path == nil || *path == "" {
		return path
	}
	u := app.uploads.PublicURL(*path)
	return &u
}

func (app *application) publicProduct(p *catalog.Product) {
	for i := range p.Images {
		p.Images[i].URL = app.uploads.PublicURL(p.Images[i].URL)
	}
	if p.Brand != nil {
		p.Brand.LogoURL = app.publicURL(p.Brand.LogoURL)
	}
	for i := range p.Categories {
		p.Categories[i].ImageURL = app.publicURL(p.Categories[i].ImageURL)
	}
}

func (app *application) publicCategory(c *catalog.Category) {
	c.ImageURL = app.publicURL(c.ImageURL)
	for i := range c.Products {
		app.publicProduct(&c.Products[i])
	}
}

func (app *application) publicBanner(b *banners.Banner) {
	b.ImageDesktop = app.publicURL(b.ImageDesktop)
	b.ImageMobile = app.publicURL(b.ImageMobile)
}

// publicSettingsHandler godoc
//
//	@Summary		Public store settings
//	@Description	Identity, contact, SEO, maintenance state and active social links.
//	@Tags			public
//	@Produce		json
//	@Success		200	{object}	settings.PublicView
//	@Router			/public/settings [get]
func (app *application) publicSettingsHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := app.loadSettings(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, cfg.Public()); err != nil {
		app.internalServerError(w, r, err)
	}
}

// publicCategoriesHandler godoc
//
//	@Summary		Storefront categories
//	@Description	Active categories in name order. With paginated=true the answer is {data, meta}
//	@Description	and skip/take select the page; otherwise a plain array.
//	@Tags			public
//	@Produce		json
//	@Param			homeOnly		query		bool	false	"Only categories flagged for the home page"
//	@Param			includeProducts	query		bool	false	"Embed the newest active products"
//	@Param			productsLimit	query		int		false	"Products per category (default 8, max 50)"
//	@Param			skip			query		int		false	"Rows to skip"
//	@Param			take			query		int		false	"Rows to return"
//	@Param			paginated		query		bool	false	"Wrap the answer with pagination metadata"
//	@Success		200				{array}		catalog.Category
//	@Failure		503				{object}	ErrorResponse	"Maintenance mode"
//	@Router			/public/category [get]
func (app *application) publicCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, take := params.Window(q)
	homeOnly := params.Bool(q, "homeOnly")
	includeProducts := params.Bool(q, "includeProducts")
	paginated := params.Bool(q, "paginated")

	productsLimit := defaultProductsLimit
	if v, err := strconv.Atoi(strings.TrimSpace(q.Get("productsLimit"))); err == nil && v > 0 {
		productsLimit = min(v, maxProductsLimit)
	}
	if paginated && take == 0 {
		take = params.DefaultLimit
	}

	key := fmt.Sprintf("categories:home=%t:products=%t:%d:skip=%d:take=%d:paged=%t",
		homeOnly, includeProducts, productsLimit, skip, take, paginated)
	tags := []string{cache.TagCategories}
	if includeProducts {
		tags = append(tags, cache.TagProducts)
	}

	app.cachedJSON(w, r, key, tags, func(ctx context.Context) (any, error) {
		rows, total, err := app.store.Catalog.StorefrontCategories(ctx, catalog.CategoryQuery{
			HomeOnly: homeOnly,
			Skip:     skip,
			Take:     take,
		})
		if err != nil {
			return nil, err
		}
		for i := range rows {
			if includeProducts {
				if rows[i].Products, err = app.store.Catalog.CategoryProducts(ctx, rows[i].ID, productsLimit); err != nil {
					return nil, err
				}
			}
			app.publicCategory(&rows[i])
		}

		if !paginated {
			return rows, nil
		}
		meta := params.New(skip/take+1, take, "")
		meta.ComputeMeta(total)
		return crud.Page[catalog.Category]{Data: rows, Meta: meta}, nil
	})
}

// publicProductsHandler godoc
//
//	@Summary		Storefront products
//	@Description	Active products only.
//	@Tags			public
//	@Produce		json
//	@Param			page		query		int		false	"Page (default 1)"
//	@Param			limit		query		int		false	"Page size (default 10, max 100)"
//	@Param			search		query		string	false	"Matches title, description and slug"
//	@Param			category	query		string	false	"Category ID"
//	@Param			brand		query		string	false	"Brand ID"
//	@Success		200			{object}	crud.Page[catalog.Product]
//	@Failure		503			{object}	ErrorResponse	"Maintenance mode"
//	@Router			/public/product [get]
func (app *application) publicProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := params.ParsePagination(q)
	filter := catalog.ProductFilter{
		ActiveOnly: true,
		CategoryID: strings.TrimSpace(q.Get("category")),
		BrandID:    strings.TrimSpace(q.Get("brand")),
	}

	key := fmt.Sprintf("products:%d:%d:%q:%q:%q", p.Page, p.Limit, p.Search, filter.CategoryID, filter.BrandID)
	app.cachedJSON(w, r, key, []string{cache.TagProducts}, func(ctx context.Context) (any, error) {
		page, err := app.store.Catalog.ListProducts(ctx, p, filter)
		if err != nil {
			return nil, err
		}
		for i := range page.Data {
			app.publicProduct(&page.Data[i])
		}
		return page, nil
	})
}

// publicProductHandler godoc
//
//	@Summary		Storefront product
//	@Tags			public
//	@Produce		json
//	@Param			slug	path		string	true	"Product slug"
//	@Success		200		{object}	catalog.Product
//	@Failure		404		{object}	ErrorResponse
//	@Router			/public/product/{slug} [get]
func (app *application) publicProductHandler(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	app.cachedJSON(w, r, "product:"+slug, []string{cache.TagProducts}, func(ctx context.Context) (any, error) {
		p, err := app.store.Catalog.GetProductBySlug(ctx, slug, true)
		if err != nil {
			return nil, err
		}
		app.publicProduct(p)
		return p, nil
	})
}

// publicBannersHandler godoc
//
//	@Summary		Active banners
//	@Tags			public
//	@Produce		json
//	@Success		200	{array}		banners.Banner
//	@Failure		503	{object}	ErrorResponse	"Maintenance mode"
//	@Router			/public/banner [get]
func (app *application) publicBannersHandler(w http.ResponseWriter, r *http.Request) {
	app.cachedJSON(w, r, "banners:active", []string{cache.TagBanners}, func(ctx context.Context) (any, error) {
		rows, err := app.store.Banners.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			app.publicBanner(&rows[i])
		}
		return rows, nil
	})
}
