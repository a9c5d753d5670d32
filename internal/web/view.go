package web

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zachkp/portfolio/internal/pagestate"
	"github.com/Zachkp/portfolio/internal/session"
)

// navItem is the view model of one navigation entry.
type navItem struct {
	Section pagestate.Section
	Label   string
	Href    string
	Active  bool
}

func buildNav(active pagestate.Section) []navItem {
	items := make([]navItem, 0, len(pagestate.Sections))
	for _, s := range pagestate.Sections {
		items = append(items, navItem{
			Section: s,
			Label:   s.Label(),
			Href:    s.Anchor(),
			Active:  s == active,
		})
	}
	return items
}

// viewResponse is the JSON form of a view's state.
type viewResponse struct {
	View      string  `json:"view"`
	Progress  float64 `json:"progress"`
	Active    string  `json:"active"`
	MenuOpen  bool    `json:"menuOpen"`
	Dark      bool    `json:"dark"`
	RootClass string  `json:"rootClass"`
	Scroll    bool    `json:"scroll"`
	Target    string  `json:"target,omitempty"`
}

type sectionRect struct {
	ID     string  `json:"id"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// scrollRequest is one scroll report. Seq increases with every report the
// page sends so that late deliveries cannot overwrite newer geometry.
type scrollRequest struct {
	pagestate.Viewport
	Sections []sectionRect `json:"sections"`
	Seq      uint64        `json:"seq"`
}

func (r scrollRequest) snapshot() pagestate.Snapshot {
	rects := pagestate.Rects{}
	for _, sr := range r.Sections {
		if sec, ok := pagestate.ParseSection(sr.ID); ok {
			if _, dup := rects[sec]; !dup {
				rects[sec] = pagestate.Rect{Top: sr.Top, Bottom: sr.Bottom}
			}
		}
	}
	return pagestate.Snapshot{Viewport: r.Viewport, Sections: rects, Seq: r.Seq}
}

// navigateRequest optionally lists the anchors present on the client's
// page. When omitted every section rendered by index is assumed present.
type navigateRequest struct {
	Anchors []string `json:"anchors"`
}

func (r navigateRequest) locator() pagestate.Locator {
	if r.Anchors == nil {
		return nil
	}
	rects := pagestate.Rects{}
	for _, a := range r.Anchors {
		if sec, ok := pagestate.ParseSection(a); ok {
			rects[sec] = pagestate.Rect{}
		}
	}
	return rects
}

func (s *Server) index(c *gin.Context) {
	v := s.views.Create()
	c.HTML(http.StatusOK, "index.html", gin.H{
		"view":    v.ID,
		"state":   v.State,
		"nav":     buildNav(v.State.Active),
		"page":    s.page,
		"year":    time.Now().Year(),
		"refLine": v.State.ReferenceLine(),
	})
}

func (s *Server) scroll(c *gin.Context) {
	var req scrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scroll report"})
		return
	}
	snap := req.snapshot()
	s.update(c, func(st *pagestate.State) { st.Scroll(snap) }, nil)
}

func (s *Server) toggleTheme(c *gin.Context) {
	s.update(c, func(st *pagestate.State) { st.ToggleTheme() }, nil)
}

func (s *Server) toggleMenu(c *gin.Context) {
	s.update(c, func(st *pagestate.State) { st.ToggleMenu() }, nil)
}

func (s *Server) navigate(c *gin.Context) {
	var req navigateRequest
	if c.Request.ContentLength != 0 && c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid navigation request"})
			return
		}
	}

	var (
		target pagestate.Section
		found  bool
	)
	s.update(c, func(st *pagestate.State) {
		target, found = st.Navigate(c.Param("section"), req.locator())
	}, func(resp *viewResponse) {
		resp.Scroll = found
		if found {
			resp.Target = string(target)
		}
	})
	if found && s.tracker != nil {
		s.tracker.Section(c.Param("id"), string(target))
	}
}

// update applies fn to the view named in the path and writes the new state,
// as the chrome fragment for htmx requests and as JSON otherwise.
func (s *Server) update(c *gin.Context, fn func(*pagestate.State), decorate func(*viewResponse)) {
	id := c.Param("id")
	v, err := s.views.Update(id, fn)
	if errors.Is(err, session.ErrViewNotFound) {
		if isHTMX(c) {
			c.Header("HX-Refresh", "true")
		}
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.log.Error("updating view", zap.String("view", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := viewResponse{
		View:      v.ID,
		Progress:  v.State.Progress,
		Active:    string(v.State.Active),
		MenuOpen:  v.State.MenuOpen,
		Dark:      v.State.Dark,
		RootClass: v.State.RootClass(),
	}
	if decorate != nil {
		decorate(&resp)
	}

	if isHTMX(c) {
		if resp.Scroll {
			c.Header("HX-Trigger", `{"portfolio:scroll-to":"`+resp.Target+`"}`)
		}
		c.HTML(http.StatusOK, "chrome.html", gin.H{
			"view":  v.ID,
			"state": v.State,
			"nav":   buildNav(v.State.Active),
			"page":  s.page,
			"oob":   true,
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}
