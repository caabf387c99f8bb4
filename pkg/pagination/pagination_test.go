package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func ctxWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestParsePageParamsDefaults(t *testing.T) {
	params := ParsePageParams(ctxWithQuery(""))
	assert.Equal(t, DefaultPage, params.Page)
	assert.Equal(t, DefaultPageSize, params.PageSize)
}

func TestParsePageParamsClampsPageSize(t *testing.T) {
	params := ParsePageParams(ctxWithQuery("page=3&page_size=1000"))
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, MaxPageSize, params.PageSize)
}

func TestParsePageParamsRejectsInvalid(t *testing.T) {
	params := ParsePageParams(ctxWithQuery("page=-1&page_size=abc"))
	assert.Equal(t, DefaultPage, params.Page)
	assert.Equal(t, DefaultPageSize, params.PageSize)
}

func TestNewPageInfo(t *testing.T) {
	info := NewPageInfo(2, 10, 35)
	assert.Equal(t, 4, info.TotalPages)
	assert.True(t, info.HasNext)
	assert.True(t, info.HasPrev)

	last := NewPageInfo(4, 10, 35)
	assert.False(t, last.HasNext)
}

func TestGetOffset(t *testing.T) {
	p := &PageParams{Page: 3, PageSize: 20}
	assert.Equal(t, 40, p.GetOffset())
	assert.Equal(t, 20, p.GetLimit())
}
