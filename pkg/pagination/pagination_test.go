package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestContext(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestParseDefaults(t *testing.T) {
	p := Parse(newTestContext(""))
	if p.Page != DefaultPage || p.Limit != DefaultLimit || p.Offset != 0 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestParseOffset(t *testing.T) {
	p := Parse(newTestContext("page=3&limit=25"))
	if p.Page != 3 || p.Limit != 25 || p.Offset != 50 {
		t.Fatalf("unexpected params: %+v", p)
	}
}

func TestParseClampsLimit(t *testing.T) {
	p := Parse(newTestContext("limit=500"))
	if p.Limit != MaxLimit {
		t.Fatalf("limit not clamped: %d", p.Limit)
	}

	p = Parse(newTestContext("limit=0"))
	if p.Limit != DefaultLimit {
		t.Fatalf("zero limit not defaulted: %d", p.Limit)
	}
}

func TestParseRejectsNegativePage(t *testing.T) {
	p := Parse(newTestContext("page=-2"))
	if p.Page != DefaultPage {
		t.Fatalf("negative page not defaulted: %d", p.Page)
	}
}
