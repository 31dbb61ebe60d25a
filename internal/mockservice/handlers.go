package mockservice

import (
	"bytes"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/pkg/errors"
)

// reply writes v as JSON or attaches err for middleware.ErrorHandler
func reply(c *gin.Context, v any, err error) {
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Service) countRequest(c *gin.Context) {
	s.requests.Add(1)
	c.Next()
}

// catalog handles GET /api/reports/*path
func (s *Service) catalog(c *gin.Context) {
	itemPath := strings.Trim(c.Param("path"), "/")
	items, ok := findCatalog(s.tree, itemPath)
	if !ok {
		reply(c, nil, errors.New(errors.ErrCodeNotFound, "catalog item not found: "+itemPath))
		return
	}
	if c.Query("recursive") != "true" {
		items = shallow(items)
	}
	if items == nil {
		items = []reportapi.CatalogItem{}
	}
	c.JSON(http.StatusOK, items)
}

// splitReportPath splits /{filePath}[/{reportName}]/{action}. The file
// path ends at the first FlexReport segment when there is one.
func splitReportPath(rest string) (filePath, reportName, action string, ok bool) {
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) < 2 {
		return "", "", "", false
	}
	action = segments[len(segments)-1]
	segments = segments[:len(segments)-1]

	for i, seg := range segments {
		if reportapi.IsFlexReport(seg) {
			return strings.Join(segments[:i+1], "/"), strings.Join(segments[i+1:], "/"), action, true
		}
	}
	return strings.Join(segments, "/"), "", action, true
}

// report handles GET|POST /api/report/*rest
func (s *Service) report(c *gin.Context) {
	filePath, reportName, action, ok := splitReportPath(c.Param("rest"))
	if !ok {
		reply(c, nil, errors.New(errors.ErrCodeNotFound, "unknown report endpoint"))
		return
	}

	switch action {
	case "load":
		req := &reportapi.LoadRequest{}
		if c.Request.Method == http.MethodPost {
			if err := c.ShouldBindJSON(req); err != nil {
				reply(c, nil, errors.ErrValidation("invalid load request: "+err.Error()))
				return
			}
		} else if v := c.Query("paginated"); v != "" {
			p, err := strconv.ParseBool(v)
			if err != nil {
				reply(c, nil, errors.ErrValidation("invalid paginated flag"))
				return
			}
			req.Paginated = &p
		}
		info, err := s.load(filePath, reportName, req)
		reply(c, info, err)
	case "supportedformats":
		if c.Request.Method != http.MethodGet {
			c.Status(http.StatusMethodNotAllowed)
			return
		}
		if _, _, err := s.resolve(filePath, reportName); err != nil {
			reply(c, nil, err)
			return
		}
		c.JSON(http.StatusOK, exportFormats)
	default:
		reply(c, nil, errors.New(errors.ErrCodeNotFound, "unknown report action: "+action))
	}
}

func (s *Service) getStatus(c *gin.Context) {
	v, err := s.status(c.Param("id"))
	reply(c, v, err)
}

func (s *Service) getRender(c *gin.Context) {
	v, err := s.render(c.Param("id"))
	reply(c, v, err)
}

func (s *Service) getStop(c *gin.Context) {
	v, err := s.stop(c.Param("id"))
	reply(c, v, err)
}

func (s *Service) deleteCache(c *gin.Context) {
	v, err := s.clear(c.Param("id"))
	reply(c, v, err)
}

func (s *Service) getParameters(c *gin.Context) {
	v, err := s.parameters(c.Param("id"))
	reply(c, v, err)
}

func (s *Service) postParameters(c *gin.Context) {
	var values []reportapi.ParameterValue
	if err := c.ShouldBindJSON(&values); err != nil {
		reply(c, nil, errors.ErrValidation("invalid parameter values: "+err.Error()))
		return
	}
	v, err := s.setParameters(c.Param("id"), values)
	reply(c, v, err)
}

func (s *Service) postPageSettings(c *gin.Context) {
	var ps reportapi.PageSettings
	if err := c.ShouldBindJSON(&ps); err != nil {
		reply(c, nil, errors.ErrValidation("invalid page settings: "+err.Error()))
		return
	}
	v, err := s.setPageSettings(c.Param("id"), ps)
	reply(c, v, err)
}

func (s *Service) postCustomAction(c *gin.Context) {
	var action reportapi.CustomAction
	if err := c.ShouldBindJSON(&action); err != nil {
		reply(c, nil, errors.ErrValidation("invalid custom action: "+err.Error()))
		return
	}
	v, err := s.customAction(c.Param("id"), action)
	reply(c, v, err)
}

func (s *Service) getOutlines(c *gin.Context) {
	v, err := s.withExecution(c.Param("id"), func(exec *execution) (any, error) {
		if err := requireRendered(exec); err != nil {
			return nil, err
		}
		if exec.report.outline == nil {
			return []reportapi.OutlineNode{}, nil
		}
		return exec.report.outline, nil
	})
	reply(c, v, err)
}

func (s *Service) getBookmark(c *gin.Context) {
	name := c.Query("name")
	v, err := s.withExecution(c.Param("id"), func(exec *execution) (any, error) {
		if err := requireRendered(exec); err != nil {
			return nil, err
		}
		pos, ok := exec.report.bookmarks[name]
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "bookmark not found: "+name)
		}
		return pos, nil
	})
	reply(c, v, err)
}

func (s *Service) getSearch(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		reply(c, nil, errors.ErrValidation("search text is required"))
		return
	}
	matchCase := c.Query("matchCase") == "true"
	wholeWord := c.Query("wholeWord") == "true"

	v, err := s.withExecution(c.Param("id"), func(exec *execution) (any, error) {
		if err := requireRendered(exec); err != nil {
			return nil, err
		}
		return search(exec.report.pages, text, matchCase, wholeWord), nil
	})
	reply(c, v, err)
}

func (s *Service) getExport(c *gin.Context) {
	format := strings.ToLower(c.Query("format"))
	contentType, ok := exportContentTypes[format]
	if !ok {
		reply(c, nil, errors.ErrValidation("unsupported export format: "+format))
		return
	}

	var (
		data     []byte
		fileName string
	)
	_, err := s.withExecution(c.Param("id"), func(exec *execution) (any, error) {
		if err := requireRendered(exec); err != nil {
			return nil, err
		}
		data = export(exec.report.pages, format)
		fileName = c.Query("exportFileName")
		if fileName == "" {
			base := exec.reportName
			if base == "" {
				base = strings.TrimSuffix(path.Base(exec.file.path), path.Ext(exec.file.path))
			}
			fileName = base
		}
		if path.Ext(fileName) == "" {
			fileName += "." + format
		}
		return nil, nil
	})
	if err != nil {
		reply(c, nil, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, contentType, data)
}

// search scans every page line for text
func search(pages [][]string, text string, matchCase, wholeWord bool) []reportapi.SearchResult {
	needle := text
	if !matchCase {
		needle = strings.ToLower(text)
	}

	results := []reportapi.SearchResult{}
	for pageIndex, lines := range pages {
		for lineNo, line := range lines {
			hay := line
			if !matchCase {
				hay = strings.ToLower(line)
			}
			offset := 0
			for {
				idx := strings.Index(hay[offset:], needle)
				if idx < 0 {
					break
				}
				pos := offset + idx
				offset = pos + len(needle)
				if wholeWord && !isWordBoundary(line, pos, pos+len(needle)) {
					continue
				}
				results = append(results, reportapi.SearchResult{
					NearText:           line,
					PositionInNearText: pos,
					PageIndex:          pageIndex,
					BoundsList: []reportapi.Rect{{
						X:      float64(pos) * 6,
						Y:      float64(lineNo) * 14,
						Width:  float64(len(needle)) * 6,
						Height: 12,
					}},
				})
			}
		}
	}
	return results
}

func isWordBoundary(line string, start, end int) bool {
	isWord := func(b byte) bool {
		r := rune(b)
		return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
	}
	if start > 0 && isWord(line[start-1]) {
		return false
	}
	if end < len(line) && isWord(line[end]) {
		return false
	}
	return true
}

// export renders the pages in a simple textual form of each format
func export(pages [][]string, format string) []byte {
	var buf bytes.Buffer
	switch format {
	case "pdf":
		buf.WriteString("%PDF-1.4\n")
		for i, lines := range pages {
			fmt.Fprintf(&buf, "%% page %d\n", i+1)
			for _, l := range lines {
				fmt.Fprintf(&buf, "(%s) Tj\n", l)
			}
		}
		buf.WriteString("%%EOF\n")
	case "html":
		buf.WriteString("<html><body>\n")
		for _, lines := range pages {
			buf.WriteString("<div class=\"page\">\n")
			for _, l := range lines {
				fmt.Fprintf(&buf, "<p>%s</p>\n", l)
			}
			buf.WriteString("</div>\n")
		}
		buf.WriteString("</body></html>\n")
	case "csv":
		buf.WriteString("page,line,text\n")
		for i, lines := range pages {
			for j, l := range lines {
				fmt.Fprintf(&buf, "%d,%d,%q\n", i+1, j+1, l)
			}
		}
	default:
		for i, lines := range pages {
			if i > 0 {
				buf.WriteString("\f\n")
			}
			for _, l := range lines {
				buf.WriteString(l + "\n")
			}
		}
	}
	return buf.Bytes()
}
