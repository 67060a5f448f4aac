package ezb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Options)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts := Options{BaseURL: srv.URL + "/api/v1/", Token: "secret", Timezone: "Europe/Berlin", PageSize: 2}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(opts, log.Default())
	require.NoError(t, err)
	return c
}

func writeResult(w http.ResponseWriter, result any) {
	data, _ := json.Marshal(result)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": json.RawMessage(data)})
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{}, log.Default())
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "http://x", Timezone: "Mars/Olympus"}, log.Default())
	assert.Error(t, err)
}

func TestHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.Equal(t, "/api/v1/accounts/list.json", r.URL.Path)
		writeResult(w, []any{})
	})

	require.NoError(t, c.Health(context.Background()))
	assert.Equal(t, "Bearer secret", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "Europe/Berlin", got.Get("X-Timezone-Name"))

	offset, err := strconv.Atoi(got.Get("X-Timezone-Offset"))
	require.NoError(t, err)
	assert.Contains(t, []int{60, 120}, offset)
}

func TestHealthUnsuccessful(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": false, "errorMessage": "token invalid"}`)
	})

	err := c.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsuccessful)
}

func TestListAccounts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true, "result": [
			{"id": "acc-1", "name": "Giro", "comment": "main [SourceAcctID:100]"},
			{"id": "acc-2", "name": "Cash", "comment": ""}
		]}`)
	})

	accounts, err := c.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc-1", accounts[0].ID)
	assert.Equal(t, "main [SourceAcctID:100]", accounts[0].Comment)
}

func TestListCategories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transaction/categories/list.json", r.URL.Path)
		fmt.Fprint(w, `{"success": true, "result": {
			"1": [{"id": "10", "name": "Salary", "type": 1, "subCategories": [{"id": "11", "name": "Bonus", "type": 1, "parentId": "10"}]}],
			"2": [{"id": "20", "name": "Food", "type": 2}]
		}}`)
	})

	tree, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, tree[CategoryTypeIncome], 1)
	assert.Equal(t, "Bonus", tree[CategoryTypeIncome][0].SubCategories[0].Name)
	assert.Equal(t, "20", tree[CategoryTypeExpense][0].ID)
}

func TestCreateCategory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/transaction/categories/add.json", r.URL.Path)

		var payload NewCategory
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Food", payload.Name)
		assert.Equal(t, CategoryTypeExpense, payload.Type)
		assert.Equal(t, RootParentID, payload.ParentID)
		assert.Equal(t, DefaultCategoryIcon, payload.Icon)
		assert.Equal(t, DefaultCategoryColor, payload.Color)

		writeResult(w, Category{ID: "77", Name: payload.Name, Type: payload.Type})
	})

	created, err := c.CreateCategory(context.Background(), &NewCategory{
		Name:     "Food",
		Type:     CategoryTypeExpense,
		ParentID: RootParentID,
		Icon:     DefaultCategoryIcon,
		Color:    DefaultCategoryColor,
	})
	require.NoError(t, err)
	assert.Equal(t, "77", created.ID)
}

func TestListAllTransactionsPaginates(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		assert.Equal(t, "2", r.URL.Query().Get("count"))

		switch page {
		case "1":
			writeResult(w, map[string]any{"items": []Transaction{{ID: "1", Comment: "[SourceID:a]"}, {ID: "2"}}})
		case "2":
			writeResult(w, map[string]any{"items": []Transaction{{ID: "3", Comment: "[SourceID:b_c]"}}})
		default:
			t.Errorf("unexpected page %s", page)
		}
	})

	txs, err := c.ListAllTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, pages)
	require.Len(t, txs, 3)
	assert.Equal(t, "[SourceID:b_c]", txs[2].Comment)
}

func TestListAllTransactionsStopsOnEmptyPage(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("page") == "1" {
			writeResult(w, map[string]any{"items": []Transaction{{ID: "1"}, {ID: "2"}}})
			return
		}
		writeResult(w, map[string]any{"items": []Transaction{}})
	})

	txs, err := c.ListAllTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	assert.Equal(t, 2, calls)
}

func TestCreateTransaction(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transactions/add.json", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &body))
		writeResult(w, Transaction{ID: "900"})
	})

	created, err := c.CreateTransaction(context.Background(), &NewTransaction{
		Type:            TransactionTypeExpense,
		Time:            1706742000,
		UTCOffset:       60,
		CategoryID:      "20",
		TagIDs:          []string{},
		Comment:         "Coffee [SourceID:a]",
		SourceAccountID: "acc-1",
		SourceAmount:    999,
	})
	require.NoError(t, err)
	assert.Equal(t, "900", created.ID)

	assert.EqualValues(t, 3, body["type"])
	assert.EqualValues(t, 999, body["sourceAmount"])
	assert.Equal(t, []any{}, body["tagIds"])
	assert.NotContains(t, body, "destinationAccountId", "only transfers carry a destination")
}

func TestErrorClassification(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success": false, "errorMessage": "unauthorized access"}`)
		})
		_, err := c.ListAccounts(context.Background())

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "unauthorized access", apiErr.Message)
		assert.Equal(t, endpointAccounts, apiErr.Endpoint)
		assert.False(t, IsTransport(err))
	})

	t.Run("malformed json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>`)
		})
		_, err := c.ListAccounts(context.Background())
		assert.True(t, IsTransport(err))
	})

	t.Run("timeout", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			writeResult(w, []any{})
		}, func(o *Options) { o.Timeout = 20 * time.Millisecond })
		_, err := c.ListAccounts(context.Background())
		require.Error(t, err)
		assert.True(t, IsTransport(err))
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c, err := New(Options{BaseURL: srv.URL, Timezone: "UTC"}, log.Default())
		require.NoError(t, err)
		_, err = c.ListAccounts(context.Background())
		assert.True(t, IsTransport(err))
	})
}

func TestOffsetMinutes(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, 60, OffsetMinutes(time.Date(2024, 2, 1, 0, 0, 0, 0, loc)))
	assert.Equal(t, 120, OffsetMinutes(time.Date(2024, 7, 1, 0, 0, 0, 0, loc)))
	assert.Equal(t, 0, OffsetMinutes(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
}
