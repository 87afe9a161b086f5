package models

import "encoding/json"

// Relay method names. The dotted aliases are the names older clients send.
const (
	MethodCreateContext = "create-context"
	MethodNewPage       = "new-page"
	MethodNavigate      = "navigate"
	MethodGetContent    = "get-content"
	MethodCloseBrowser  = "close-browser"
)

// MethodAliases maps legacy method names onto the canonical ones.
var MethodAliases = map[string]string{
	"Browser.newContext":     MethodCreateContext,
	"BrowserContext.newPage": MethodNewPage,
	"Page.goto":              MethodNavigate,
	"Page.content":           MethodGetContent,
	"Browser.close":          MethodCloseBrowser,
}

// Request is one inbound command frame
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the reply envelope. Exactly one of Result and Error is set.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result interface{}     `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody carries a failure message
type ErrorBody struct {
	Message string `json:"message"`
}

type NewPageParams struct {
	ContextID string `json:"contextId"`
}

type NavigateParams struct {
	PageID string `json:"pageId"`
	URL    string `json:"url"`
}

type GetContentParams struct {
	PageID string `json:"pageId"`
}

type CloseBrowserParams struct {
	BrowserID string `json:"browserId"`
}

type CreateContextResult struct {
	BrowserID string `json:"browserId"`
	ContextID string `json:"contextId"`
}

type NewPageResult struct {
	PageID string `json:"pageId"`
}

type GetContentResult struct {
	Content string `json:"content"`
}

// EmptyResult marshals as {}.
type EmptyResult struct{}
