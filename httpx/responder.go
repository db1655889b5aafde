package httpx

import (
	"encoding/json"
	"encoding/xml"
	"html"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/adeilh/bearer/auth"
)

// Message ids for the localized bodies of 401 and 403 responses.
const (
	MessageNotAuthenticated = "silhouette.not.authenticated"
	MessageNotAuthorized    = "silhouette.not.authorized"
)

// Format is a response representation chosen from the Accept header.
type Format int

const (
	FormatHTML Format = iota
	FormatJSON
	FormatXML
	FormatText
)

var formatByMediaType = map[string]Format{
	"text/html":             FormatHTML,
	"application/xhtml+xml": FormatHTML,
	"application/json":      FormatJSON,
	"application/xml":       FormatXML,
	"text/xml":              FormatXML,
	"text/plain":            FormatText,
}

// Messages holds localized texts keyed by language, then message id.
type Messages map[string]map[string]string

const defaultLanguage = "en"

// DefaultMessages carries the English texts.
var DefaultMessages = Messages{
	defaultLanguage: {
		MessageNotAuthenticated: "Authentication required.",
		MessageNotAuthorized:    "Access denied.",
	},
}

// Lookup returns the text for id in the first language of acceptLanguage
// that has one, falling back to English and then to id itself.
func (m Messages) Lookup(acceptLanguage, id string) string {
	for _, tag := range parseAccept(acceptLanguage) {
		lang := strings.ToLower(tag.value)
		if base, _, found := strings.Cut(lang, "-"); found {
			if msg, ok := m[lang][id]; ok {
				return msg
			}
			lang = base
		}
		if msg, ok := m[lang][id]; ok {
			return msg
		}
	}
	if msg, ok := m[defaultLanguage][id]; ok {
		return msg
	}
	return id
}

// Responder renders not-authenticated and not-authorized responses in the
// representation the client accepts.
type Responder struct {
	messages Messages
}

// NewResponder builds a Responder; a nil catalog uses DefaultMessages.
func NewResponder(messages Messages) *Responder {
	if messages == nil {
		messages = DefaultMessages
	}
	return &Responder{messages: messages}
}

// NotAuthenticated writes a 401 response.
func (r *Responder) NotAuthenticated(w http.ResponseWriter, req *http.Request) {
	r.Respond(w, req, StatusUnauthorized, MessageNotAuthenticated)
}

// NotAuthorized writes a 403 response.
func (r *Responder) NotAuthorized(w http.ResponseWriter, req *http.Request) {
	r.Respond(w, req, StatusForbidden, MessageNotAuthorized)
}

// Respond writes status with the localized text for messageID.
func (r *Responder) Respond(w http.ResponseWriter, req *http.Request, status int, messageID string) {
	msg := r.messages.Lookup(req.Header.Get("Accept-Language"), messageID)
	contentType, body := render(Negotiate(req.Header.Get("Accept")), status, msg)
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// AuthErrorHandler adapts r to auth middleware failures. Authentication
// failures get the negotiated 401; anything else is reported with its
// status and no detail.
func (r *Responder) AuthErrorHandler() auth.MiddlewareErrorHandler {
	return func(w http.ResponseWriter, req *http.Request, err error) {
		status := auth.StatusFor(err)
		if status == StatusUnauthorized {
			r.NotAuthenticated(w, req)
			return
		}
		http.Error(w, http.StatusText(status), status)
	}
}

// Negotiate picks a Format from an Accept header. HTML wins when the header
// is empty or names nothing recognized.
func Negotiate(accept string) Format {
	for _, mediaRange := range parseAccept(accept) {
		if f, ok := formatByMediaType[strings.ToLower(mediaRange.value)]; ok {
			return f
		}
	}
	return FormatHTML
}

type xmlBody struct {
	XMLName xml.Name `xml:"response"`
	Success bool     `xml:"success"`
	Message string   `xml:"message"`
}

func render(f Format, status int, msg string) (string, []byte) {
	switch f {
	case FormatJSON:
		body, _ := json.Marshal(map[string]any{"success": false, "message": msg})
		return "application/json; charset=utf-8", body
	case FormatXML:
		body, _ := xml.Marshal(xmlBody{Message: msg})
		return "application/xml; charset=utf-8", append([]byte(xml.Header), body...)
	case FormatText:
		return "text/plain; charset=utf-8", []byte(msg)
	default:
		title := html.EscapeString(http.StatusText(status))
		return "text/html; charset=utf-8", []byte("<html><head><title>" + title + "</title></head><body>" + html.EscapeString(msg) + "</body></html>")
	}
}

type weighted struct {
	value string
	q     float64
}

// parseAccept splits an Accept-style header into values ordered by
// descending quality. Entries with q=0 are dropped.
func parseAccept(header string) []weighted {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	out := make([]weighted, 0, len(parts))
	for _, part := range parts {
		fields := strings.Split(part, ";")
		value := strings.TrimSpace(fields[0])
		if value == "" {
			continue
		}
		q := 1.0
		for _, param := range fields[1:] {
			key, raw, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(key) != "q" {
				continue
			}
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
				q = parsed
			}
		}
		if q <= 0 {
			continue
		}
		out = append(out, weighted{value: value, q: q})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].q > out[j].q })
	return out
}
