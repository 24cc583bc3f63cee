package pkg

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
)

const hxTriggerKey = "hx_trigger_events"

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// Trigger adds a client-side event to the HX-Trigger response header.
// Repeated calls accumulate events; a later call with the same name replaces
// the earlier detail.
func Trigger(c *gin.Context, name string, detail any) {
	events, _ := c.Get(hxTriggerKey)
	m, _ := events.(map[string]any)
	if m == nil {
		m = make(map[string]any)
		c.Set(hxTriggerKey, m)
	}
	if detail == nil {
		detail = true
	}
	m[name] = detail

	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	c.Header("HX-Trigger", string(b))
}

// ShowToast triggers the showToast client event.
func ShowToast(c *gin.Context, message, toastType string) {
	Trigger(c, "showToast", map[string]string{
		"message": message,
		"type":    toastType,
	})
}

// Redirect asks htmx to perform a full client-side navigation.
func Redirect(c *gin.Context, url string) {
	c.Header("HX-Redirect", url)
}

// Reswap overrides the swap strategy of the triggering element, e.g. "none"
// to keep the current DOM in place after a failure.
func Reswap(c *gin.Context, strategy string) {
	c.Header("HX-Reswap", strategy)
}
