// Package http serves the dashboard JSON API.
//
// This file holds the helpers that read query parameters and request bodies.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"painel/internal/core"
	"painel/internal/dashboard"
)

const maxBodyBytes = 1 << 20

var errBadJSON = core.NewValidationError("body", "JSON inválido")

// ParseTableFilter reads search, category and subcategory.
func ParseTableFilter(query url.Values) dashboard.TableFilter {
	return dashboard.TableFilter{
		Search:        sanitizeInput(query.Get("search")),
		CategoryID:    sanitizeInput(query.Get("category")),
		SubcategoryID: sanitizeInput(query.Get("subcategory")),
	}
}

// ParseSortParams reads sort and dir. ok is false when no sort was given.
func ParseSortParams(query url.Values) (spec dashboard.SortSpec, ok bool, err error) {
	col := dashboard.SortColumn(strings.TrimSpace(query.Get("sort")))
	if col == "" {
		return dashboard.SortSpec{}, false, nil
	}
	if !col.Valid() {
		return dashboard.SortSpec{}, false, core.NewValidationError("sort", "coluna inválida")
	}
	dir := dashboard.SortDir(strings.ToLower(strings.TrimSpace(query.Get("dir"))))
	switch dir {
	case dashboard.SortAsc, dashboard.SortDesc, "":
	default:
		return dashboard.SortSpec{}, false, core.NewValidationError("dir", "direção inválida")
	}
	return dashboard.SortSpec{Col: col, Dir: dir}, true, nil
}

// ParseMetricsParam reads a comma separated tile selection. Blank slots
// keep the default metric of that tile.
func ParseMetricsParam(query url.Values) (dashboard.MetricSelection, bool) {
	raw := strings.TrimSpace(query.Get("metrics"))
	if raw == "" {
		return nil, false
	}
	sel := dashboard.DefaultSelection()
	for i, name := range strings.Split(raw, ",") {
		if i >= len(sel) {
			break
		}
		if name = sanitizeInput(name); name != "" {
			sel[i] = name
		}
	}
	return sel, true
}

// ParseIndex reads a non-negative path index.
func ParseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, core.NewValidationError("index", fmt.Sprintf("índice inválido: %q", s))
	}
	return n, nil
}

// decodeJSON reads a JSON body of at most maxBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.NewValidationError("body", "corpo da requisição muito grande")
		}
		if errors.Is(err, io.EOF) {
			return core.NewValidationError("body", "corpo vazio")
		}
		var invalid *core.ValidationError
		if errors.As(err, &invalid) {
			return err
		}
		return errBadJSON
	}
	return nil
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
