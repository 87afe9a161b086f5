package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/shehryarbajwa/headed-relay/internal/config"
	"github.com/shehryarbajwa/headed-relay/internal/session"
	"github.com/shehryarbajwa/headed-relay/pkg/models"
)

// zeroID is used when a frame carries no usable id.
var zeroID = json.RawMessage("0")

// dispatch runs one command frame. It reports false when no reply should be
// sent: the session is gone, or a handle was unknown under the drop policy.
func (c *connection) dispatch(message []byte) (*models.Response, bool) {
	var req models.Request
	if err := json.Unmarshal(message, &req); err != nil {
		log.Printf("❌ Error handling message: %v", err)
		return errorResponse(zeroID, err), true
	}

	id := req.ID
	if len(id) == 0 || string(id) == "null" {
		id = zeroID
	}

	method := canonicalMethod(req.Method)
	log.Printf("Received: %s", req.Method)

	var (
		result interface{}
		err    error
	)
	switch method {
	case models.MethodCreateContext:
		result, err = c.createContext()
	case models.MethodNewPage:
		result, err = c.newPage(req.Params)
	case models.MethodNavigate:
		result, err = c.navigate(req.Params)
	case models.MethodGetContent:
		result, err = c.getContent(req.Params)
	case models.MethodCloseBrowser:
		result, err = c.closeBrowser(req.Params)
	default:
		log.Printf("Unhandled method: %s", req.Method)
		result = models.EmptyResult{}
	}

	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			return nil, false
		}
		if errors.Is(err, session.ErrNotFound) && c.server.opts.NotFoundPolicy == config.NotFoundDrop {
			log.Printf("⚠️ Dropping %s: %v", method, err)
			return nil, false
		}
		log.Printf("❌ %s failed: %v", method, err)
		return errorResponse(id, err), true
	}

	return &models.Response{ID: id, Result: result}, true
}

func canonicalMethod(method string) string {
	if alias, ok := models.MethodAliases[method]; ok {
		return alias
	}
	return method
}

func errorResponse(id json.RawMessage, err error) *models.Response {
	return &models.Response{
		ID:    id,
		Error: &models.ErrorBody{Message: err.Error()},
	}
}

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func (c *connection) createContext() (interface{}, error) {
	log.Println("Creating new context with headed browser...")

	b, err := c.server.launcher.Launch(c.sess.Context())
	if err != nil {
		if c.sess.Closed() {
			return nil, session.ErrClosed
		}
		return nil, err
	}

	bc, err := b.NewContext()
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	browserID, contextID, err := c.sess.AddBrowser(b, bc)
	if err != nil {
		// connection went away while the browser was starting
		_ = b.Close()
		return nil, err
	}

	return models.CreateContextResult{BrowserID: browserID, ContextID: contextID}, nil
}

func (c *connection) newPage(raw json.RawMessage) (interface{}, error) {
	var params models.NewPageParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}

	bc, err := c.sess.BrowsingContext(params.ContextID)
	if err != nil {
		return nil, err
	}

	page, err := bc.NewPage()
	if err != nil {
		return nil, err
	}

	pageID, err := c.sess.AddPage(params.ContextID, page)
	if err != nil {
		_ = page.Close()
		return nil, err
	}

	return models.NewPageResult{PageID: pageID}, nil
}

func (c *connection) navigate(raw json.RawMessage) (interface{}, error) {
	var params models.NavigateParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}

	page, err := c.sess.Page(params.PageID)
	if err != nil {
		return nil, err
	}

	log.Printf("Navigating to: %s", params.URL)
	if err := page.Goto(params.URL, c.server.opts.NavigationTimeout); err != nil {
		return nil, err
	}

	return models.EmptyResult{}, nil
}

func (c *connection) getContent(raw json.RawMessage) (interface{}, error) {
	var params models.GetContentParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}

	page, err := c.sess.Page(params.PageID)
	if err != nil {
		return nil, err
	}

	content, err := page.Content()
	if err != nil {
		return nil, err
	}

	return models.GetContentResult{Content: content}, nil
}

func (c *connection) closeBrowser(raw json.RawMessage) (interface{}, error) {
	var params models.CloseBrowserParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}

	if err := c.sess.CloseBrowser(params.BrowserID); err != nil {
		return nil, err
	}

	return models.EmptyResult{}, nil
}
