package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/akofink/textual-cli-agent/model"
)

// RegisterBuiltins registers the file, HTTP, and git tool set. Todo and
// parallel tools are registered separately because they need a store and
// the registry itself.
func RegisterBuiltins(r *Registry) error {
	if err := registerFileTools(r); err != nil {
		return err
	}
	if err := registerHTTPTools(r); err != nil {
		return err
	}
	return registerGitTools(r)
}

func registerFileTools(r *Registry) error {
	if err := r.Register(model.ToolSpec{
		Name:        "file_read",
		Description: "Read a text file.",
		Parameters: ObjectSchema(map[string]any{
			"path": StringParam("Path of the file to read"),
		}, "path"),
	}, fileRead); err != nil {
		return err
	}

	if err := r.Register(model.ToolSpec{
		Name:        "file_write",
		Description: "Write text to a file (overwrites by default).",
		Parameters: ObjectSchema(map[string]any{
			"path":    StringParam("Path of the file to write"),
			"content": StringParam("Text content to write"),
			"append":  BooleanParam("Append instead of overwrite"),
		}, "path", "content"),
	}, fileWrite); err != nil {
		return err
	}

	if err := r.Register(model.ToolSpec{
		Name:        "path_exists",
		Description: "Check if a path exists.",
		Parameters: ObjectSchema(map[string]any{
			"path": StringParam("Path to check"),
		}, "path"),
	}, pathExists); err != nil {
		return err
	}

	if err := r.Register(model.ToolSpec{
		Name:        "glob_files",
		Description: "Glob for files matching a pattern. Supports ** for recursion.",
		Parameters: ObjectSchema(map[string]any{
			"pattern": StringParam("Glob pattern, e.g. internal/**/*.go"),
		}, "pattern"),
	}, globFiles); err != nil {
		return err
	}

	return r.Register(model.ToolSpec{
		Name:        "find_replace",
		Description: "Find and replace in files. Returns count of replacements. Supports regex.",
		Parameters: ObjectSchema(map[string]any{
			"pattern":     StringParam("Text or regex pattern to find"),
			"replacement": StringParam("Replacement text"),
			"paths":       ArrayParam("Files to rewrite", StringParam("File path")),
			"regex":       BooleanParam("Treat pattern as a regular expression"),
		}, "pattern", "replacement", "paths"),
	}, findReplace)
}

func fileRead(_ context.Context, args map[string]any) (any, error) {
	path, _ := stringArg(args, "path")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func fileWrite(_ context.Context, args map[string]any) (any, error) {
	path, _ := stringArg(args, "path")
	content, _ := stringArg(args, "content")
	appendMode := boolArg(args, "append")

	flags := os.O_WRONLY | os.O_CREATE
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return nil, err
	}
	return path, nil
}

func pathExists(_ context.Context, args map[string]any) (any, error) {
	path, _ := stringArg(args, "path")
	_, err := os.Stat(path)
	return err == nil, nil
}

func globFiles(_ context.Context, args map[string]any) (any, error) {
	pattern, _ := stringArg(args, "pattern")
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	sort.Strings(matches)
	if matches == nil {
		matches = []string{}
	}
	return matches, nil
}

func findReplace(_ context.Context, args map[string]any) (any, error) {
	pattern, _ := stringArg(args, "pattern")
	replacement, _ := stringArg(args, "replacement")
	paths := stringSliceArg(args, "paths")
	useRegex := boolArg(args, "regex")

	var compiled *regexp.Regexp
	if useRegex {
		var err error
		compiled, err = regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
	}

	count := 0
	for _, target := range paths {
		data, err := os.ReadFile(target)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		content := string(data)
		var newContent string
		var replacements int
		if useRegex {
			matches := compiled.FindAllStringIndex(content, -1)
			replacements = len(matches)
			newContent = compiled.ReplaceAllString(content, replacement)
		} else {
			replacements = strings.Count(content, pattern)
			newContent = strings.ReplaceAll(content, pattern, replacement)
		}

		if replacements == 0 {
			continue
		}

		if err := os.WriteFile(target, []byte(newContent), 0644); err != nil {
			return nil, err
		}
		count += replacements
	}
	return count, nil
}

const defaultHTTPTimeout = 20 * time.Second

// maxHTTPBody caps a fetched response body at 2 MiB so one oversized
// page cannot blow up the conversation context.
const maxHTTPBody = 2 << 20

func registerHTTPTools(r *Registry) error {
	return r.Register(model.ToolSpec{
		Name:        "http_get",
		Description: "HTTP GET a URL and return text content. Optional timeout seconds.",
		Parameters: ObjectSchema(map[string]any{
			"url":     StringParam("URL to fetch"),
			"timeout": IntegerParam("Request timeout in seconds"),
			"headers": map[string]any{
				"type":                 "object",
				"description":          "Extra request headers",
				"additionalProperties": map[string]any{"type": "string"},
			},
		}, "url"),
	}, httpGet)
}

func httpGet(ctx context.Context, args map[string]any) (any, error) {
	url, _ := stringArg(args, "url")

	timeout := defaultHTTPTimeout
	if secs, ok := intArg(args, "timeout"); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if headers, ok := args["headers"].(map[string]any); ok {
		for key, value := range headers {
			if s, ok := value.(string); ok {
				req.Header.Set(key, s)
			}
		}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPBody))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s returned %s", url, resp.Status)
	}
	return string(body), nil
}

func stringArg(args map[string]any, key string) (string, bool) {
	value, ok := args[key].(string)
	return value, ok
}

func boolArg(args map[string]any, key string) bool {
	value, _ := args[key].(bool)
	return value
}

// intArg accepts the numeric shapes JSON decoding produces.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		if direct, ok := args[key].([]string); ok {
			return direct
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
