package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listRequest struct {
	TF    string `query:"tf" validate:"omitempty,oneof=1m 5m"`
	Limit int    `query:"limit" default:"50" validate:"gte=1,lte=200"`
}

func bindQuery(t *testing.T, rawQuery string) (*listRequest, []ValidationError) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	c := echo.New().NewContext(req, httptest.NewRecorder())
	out := &listRequest{}
	return out, ReadAndValidateRequest(c, out)
}

func TestReadAndValidateAppliesDefaults(t *testing.T) {
	req, errs := bindQuery(t, "tf=5m")
	require.Nil(t, errs)
	assert.Equal(t, "5m", req.TF)
	assert.Equal(t, 50, req.Limit)
}

func TestReadAndValidateReportsQueryNames(t *testing.T) {
	_, errs := bindQuery(t, "tf=2m&limit=500")
	require.Len(t, errs, 2)
	assert.Equal(t, "tf", errs[0].Field)
	assert.Equal(t, "ERR_ONEOF", errs[0].Code)
	assert.Equal(t, "tf must be one of: 1m, 5m", errs[0].Message)
	assert.Equal(t, "limit", errs[1].Field)
	assert.Equal(t, "200", errs[1].Params["max"])
}

func TestReadAndValidateBindFailure(t *testing.T) {
	_, errs := bindQuery(t, "limit=abc")
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}
