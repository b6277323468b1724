package domain

// MenuLink is an anchor found on a restaurant site
type MenuLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// ScrapedPage is the cleaned text of one fetched menu page.
// A page that failed to load has empty Text and a non-empty Error.
type ScrapedPage struct {
	SourceURL string     `json:"url"`
	Text      string     `json:"text"`
	PDFLinks  []MenuLink `json:"pdfLinks,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Usable reports whether the page carries text worth extracting
func (p ScrapedPage) Usable() bool {
	return p.Error == "" && p.Text != ""
}

// ScrapeResult is everything the scraper learned about one restaurant site
type ScrapeResult struct {
	HomepageURL string        `json:"restaurantUrl"`
	MenuLinks   []MenuLink    `json:"menuLinks"`
	Pages       []ScrapedPage `json:"pages"`
	PDFLinks    []MenuLink    `json:"pdfLinks"`
}

// Modifier is an add-on or modification of a menu item
type Modifier struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price,omitempty"`
}

// MenuItem is a raw item extracted from one page
type MenuItem struct {
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Price        *float64   `json:"price,omitempty"` // USD
	Categories   []string   `json:"categories"`
	DietaryInfos []string   `json:"dietaryInfos"`
	Modifiers    []Modifier `json:"modifiers"`
}

// ParsedMenuResult is the extraction outcome for one scraped page
type ParsedMenuResult struct {
	SourceURL string     `json:"url"`
	ItemCount int        `json:"itemCount"`
	Items     []MenuItem `json:"items"`
	Error     string     `json:"error,omitempty"`
}

// MenuStatus summarizes how far one restaurant got through scrape and extract
type MenuStatus string

const (
	MenuStatusSuccess   MenuStatus = "success"
	MenuStatusNoWebsite MenuStatus = "no-website"
	MenuStatusNoMenu    MenuStatus = "no-menu"
	MenuStatusError     MenuStatus = "error"
)

// RestaurantMenus is the per-restaurant hand-off from scrape/extract to aggregation
type RestaurantMenus struct {
	Candidate RestaurantCandidate `json:"restaurant"`
	Status    MenuStatus          `json:"status"`
	Menus     []ParsedMenuResult  `json:"parsedMenus"`
	PDFLinks  []MenuLink          `json:"pdfLinks,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// TotalItems counts extracted items across all pages
func (m RestaurantMenus) TotalItems() int {
	total := 0
	for _, menu := range m.Menus {
		total += len(menu.Items)
	}
	return total
}

// HasMenuData reports whether at least one page produced items
func (m RestaurantMenus) HasMenuData() bool {
	return m.TotalItems() > 0
}

// MenuParseResult is the scrape and extract report for a single restaurant site
type MenuParseResult struct {
	RestaurantURL string             `json:"restaurantUrl"`
	MenuLinks     []MenuLink         `json:"menuLinks"`
	ParsedMenus   []ParsedMenuResult `json:"parsedMenus"`
	PDFLinks      []MenuLink         `json:"pdfLinks"`
	TotalItems    int                `json:"totalItems"`
	Timestamp     string             `json:"timestamp"`
}
