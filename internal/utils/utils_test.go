package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerchantToken_RoundTrip(t *testing.T) {
	token, err := GenerateMerchantToken("s3cret", " ShopX ", time.Hour)
	require.NoError(t, err)

	app, err := ParseMerchantToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "ShopX", app)
}

func TestMerchantToken_Rejects(t *testing.T) {
	expired, err := GenerateMerchantToken("s3cret", "ShopX", -time.Minute)
	require.NoError(t, err)
	_, err = ParseMerchantToken("s3cret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other, err := GenerateMerchantToken("other", "ShopX", time.Hour)
	require.NoError(t, err)
	_, err = ParseMerchantToken("s3cret", other)
	assert.Error(t, err)

	_, err = GenerateMerchantToken("s3cret", "  ", time.Hour)
	assert.Error(t, err)
	_, err = GenerateMerchantToken("", "ShopX", time.Hour)
	assert.Error(t, err)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Page: 1, Limit: 20, Offset: 0}},
		{"?page=3&limit=10", Pagination{Page: 3, Limit: 10, Offset: 20}},
		{"?page=-1&limit=0", Pagination{Page: 1, Limit: 20, Offset: 0}},
		{"?page=x&limit=500", Pagination{Page: 1, Limit: 100, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got Pagination
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				got = ParsePagination(c)
				return nil
			})
			_, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTotalPages(t *testing.T) {
	p := Pagination{Page: 1, Limit: 20}
	assert.EqualValues(t, 0, p.TotalPages(0))
	assert.EqualValues(t, 1, p.TotalPages(20))
	assert.EqualValues(t, 2, p.TotalPages(21))
}
