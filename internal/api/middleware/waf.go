package middleware

import (
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/wardenhq/warden/internal/metrics"
	"github.com/wardenhq/warden/internal/waf"
)

// WAF translates the transport request into the engine's request
// descriptor, asks for a verdict, and renders a deny as a 403. The error
// body names the threat category only, never rule internals.
func WAF(engine *waf.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.IncWAFRequest()

		verdict := engine.Inspect(buildRequestInfo(c))
		if verdict.Monitored {
			metrics.IncWAFMonitored()
		}
		if !verdict.Allow {
			metrics.IncWAFBlocked()
			GetRequestLogger(c).WithFields(map[string]interface{}{
				"client":   c.ClientIP(),
				"category": verdict.Category,
			}).Warn("request denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": verdict.Reason})
			return
		}
		c.Next()
	}
}

func buildRequestInfo(c *gin.Context) *waf.RequestInfo {
	info := &waf.RequestInfo{
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		RawQuery:  c.Request.URL.RawQuery,
		Body:      url.Values{},
		UserAgent: c.Request.UserAgent(),
		ClientIP:  c.ClientIP(),
		IsAdmin:   c.GetBool(IsAdminKey),
	}

	if c.ContentType() == "multipart/form-data" {
		if form, err := c.MultipartForm(); err == nil && form != nil {
			info.Body = url.Values(form.Value)
			for _, headers := range form.File {
				for _, fh := range headers {
					info.Uploads = append(info.Uploads, waf.FileUpload{
						Filename:    fh.Filename,
						Size:        fh.Size,
						ContentType: fh.Header.Get("Content-Type"),
						SniffedType: sniffType(fh),
					})
				}
			}
		}
		return info
	}

	if err := c.Request.ParseForm(); err == nil {
		info.Body = c.Request.PostForm
	}
	return info
}

// sniffType reads the leading bytes of an upload and detects its content
// type. Returns "" when the file cannot be read; the heuristics skip the
// MIME check in that case.
func sniffType(fh *multipart.FileHeader) string {
	f, err := fh.Open()
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		return ""
	}
	return http.DetectContentType(buf[:n])
}
