package errclass

import (
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
)

// Paths probed in JSON error bodies, in priority order.
var (
	codePaths    = []string{"code", "error.code", "errorCode", "error_code"}
	messagePaths = []string{"message", "error.message", "msg", "detail", "error_description"}
	fieldPaths   = []string{"errors", "fieldErrors", "field_errors", "error.fields", "error.details"}
)

// parseBody extracts a server code, free-text message and field violations
// from an arbitrary response body. Anything it cannot read is ignored.
func parseBody(body []byte) (code, message string, fields map[string][]string) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return "", "", nil
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return "", "", nil
	}

	code = firstString(root, codePaths)
	message = firstString(root, messagePaths)
	for _, p := range fieldPaths {
		if f := parseFields(root.Get(p)); len(f) > 0 {
			fields = f
			break
		}
	}
	return code, message, fields
}

func firstString(root gjson.Result, paths []string) string {
	for _, p := range paths {
		v := root.Get(p)
		if v.Type == gjson.String {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// parseFields accepts {"field": "msg"}, {"field": ["msg", ...]} and
// [{"field": "...", "message": "..."}] shapes.
func parseFields(v gjson.Result) map[string][]string {
	out := map[string][]string{}
	switch {
	case v.IsObject():
		v.ForEach(func(key, value gjson.Result) bool {
			out[key.String()] = append(out[key.String()], messages(value)...)
			return true
		})
	case v.IsArray():
		v.ForEach(func(_, item gjson.Result) bool {
			if !item.IsObject() {
				return true
			}
			field := item.Get("field").String()
			if field == "" {
				field = item.Get("path").String()
			}
			msg := item.Get("message").String()
			if msg == "" {
				msg = item.Get("description").String()
			}
			if field != "" && msg != "" {
				out[field] = append(out[field], msg)
			}
			return true
		})
	}
	for k, msgs := range out {
		if len(msgs) == 0 {
			delete(out, k)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func messages(v gjson.Result) []string {
	switch {
	case v.Type == gjson.String:
		return []string{v.String()}
	case v.IsArray():
		var out []string
		v.ForEach(func(_, item gjson.Result) bool {
			if item.Type == gjson.String {
				out = append(out, item.String())
			}
			return true
		})
		return out
	default:
		return nil
	}
}

// readStatusDetails pulls ErrorInfo, LocalizedMessage and BadRequest details off a status.
func readStatusDetails(st *status.Status, d *detail) {
	for _, item := range st.Details() {
		switch info := item.(type) {
		case *errdetails.ErrorInfo:
			if d.code == "" {
				d.code = info.GetReason()
			}
		case *errdetails.LocalizedMessage:
			if msg := info.GetMessage(); msg != "" {
				d.message = msg
			}
		case *errdetails.BadRequest:
			for _, v := range info.GetFieldViolations() {
				if d.fields == nil {
					d.fields = map[string][]string{}
				}
				d.fields[v.GetField()] = append(d.fields[v.GetField()], v.GetDescription())
			}
		}
	}
}
