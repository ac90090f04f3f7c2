package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/predictions/ranked?"+rawQuery, nil)
	return c
}

func TestLLMOptedOut_DefaultsToLLM(t *testing.T) {
	if llmOptedOut(queryContext(t, "")) {
		t.Fatal("absent useLLM must keep the LLM path enabled")
	}
}

func TestLLMOptedOut_ExplicitFalse(t *testing.T) {
	if !llmOptedOut(queryContext(t, "useLLM=false")) {
		t.Fatal("useLLM=false must force the rule-based path")
	}
}

func TestLLMOptedOut_ExplicitTrue(t *testing.T) {
	if llmOptedOut(queryContext(t, "useLLM=true")) {
		t.Fatal("useLLM=true must keep the LLM path enabled")
	}
}

func TestParsePositiveInt(t *testing.T) {
	if got := parsePositiveInt("25", 0); got != 25 {
		t.Fatalf("parsePositiveInt(25) = %d", got)
	}
	if got := parsePositiveInt("", 50); got != 50 {
		t.Fatalf("empty input should fall back, got %d", got)
	}
	if got := parsePositiveInt("-3", 50); got != 50 {
		t.Fatalf("negative input should fall back, got %d", got)
	}
	if got := parsePositiveInt("abc", 50); got != 50 {
		t.Fatalf("junk input should fall back, got %d", got)
	}
}
