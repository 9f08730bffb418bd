package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// badRequestError is a malformed parameter; it always maps to 400.
type badRequestError struct {
	param string
	value string
}

func (e *badRequestError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.param, e.value)
}

// parseYearMonth reads year and month from the query string, defaulting to
// the current month. Range checks are left to the engine.
func parseYearMonth(r *http.Request, now time.Time) (year, month int, err error) {
	year, month = now.Year(), int(now.Month())

	q := r.URL.Query()
	if year, err = intParam(q.Get("year"), "year", year); err != nil {
		return 0, 0, err
	}
	if month, err = intParam(q.Get("month"), "month", month); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// parsePaidRequest reads the expense id from the path and month, year and
// paid from the query string. paid defaults to true.
func parsePaidRequest(r *http.Request, now time.Time) (id int64, year, month int, paid bool, err error) {
	raw := r.PathValue("id")
	id, err = strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, 0, false, &badRequestError{param: "id", value: raw}
	}

	if year, month, err = parseYearMonth(r, now); err != nil {
		return 0, 0, 0, false, err
	}

	paid = true
	if v := strings.TrimSpace(r.URL.Query().Get("paid")); v != "" {
		if paid, err = strconv.ParseBool(v); err != nil {
			return 0, 0, 0, false, &badRequestError{param: "paid", value: v}
		}
	}
	return id, year, month, paid, nil
}

func intParam(v, name string, def int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &badRequestError{param: name, value: v}
	}
	return n, nil
}
