package collector

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsync/internal/model"
)

const workdayPageSize = 20

// workdayListingResponse is the response from the Workday jobs listing endpoint.
type workdayListingResponse struct {
	Total       int              `json:"total"`
	JobPostings []workdayListing `json:"jobPostings"`
}

type workdayListing struct {
	Title         string   `json:"title"`
	ExternalPath  string   `json:"externalPath"`
	LocationsText string   `json:"locationsText"`
	PostedOn      string   `json:"postedOn"`
	BulletFields  []string `json:"bulletFields"`
}

// workdayListingRequest is the POST body for the Workday jobs listing endpoint.
type workdayListingRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

// workdayDetailResponse is the response from the Workday job detail endpoint.
type workdayDetailResponse struct {
	JobPostingInfo workdayJobDetail `json:"jobPostingInfo"`
}

type workdayJobDetail struct {
	JobReqID            string   `json:"jobReqId"`
	Title               string   `json:"title"`
	Location            string   `json:"location"`
	PostedOn            string   `json:"postedOn"`
	StartDate           string   `json:"startDate"`
	TimeType            string   `json:"timeType"`
	ExternalURL         string   `json:"externalUrl"`
	JobDescription      string   `json:"jobDescription"`
	AdditionalLocations []string `json:"additionalLocations"`
}

// Workday reads a Workday career site in two phases: paged listings, then a
// detail request per listing.
type Workday struct {
	baseURL     string
	companyName string
	searchText  string
	parallelism int
	client      *Client
	now         func() time.Time
}

// NewWorkday creates a collector for the career site rooted at baseURL, e.g.
// https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/External.
func NewWorkday(baseURL, companyName, searchText string, parallelism int, client *Client) *Workday {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Workday{
		baseURL:     strings.TrimRight(baseURL, "/"),
		companyName: companyName,
		searchText:  searchText,
		parallelism: parallelism,
		client:      client,
		now:         time.Now,
	}
}

func (w *Workday) Name() string { return "workday" }

// Collect pages through listings newest first. A failed first page ends the
// collection; later listing pages and individual detail requests are
// reported as page errors. Paging stops once a page reaches the cursor.
func (w *Workday) Collect(ctx context.Context, cursor string) iter.Seq2[model.RawPosting, error] {
	since := parseCursor(cursor)

	return func(yield func(model.RawPosting, error) bool) {
		total := 0
		for offset := 0; ; offset += workdayPageSize {
			var listResp workdayListingResponse
			body := workdayListingRequest{
				AppliedFacets: map[string]any{},
				Limit:         workdayPageSize,
				Offset:        offset,
				SearchText:    w.searchText,
			}
			err := w.client.PostJSON(ctx, w.baseURL+"/jobs", body, &listResp)
			if err != nil {
				err = pageFailure(w.Name(), "offset "+strconv.Itoa(offset), offset == 0,
					fmt.Errorf("workday listing fetch for %s: %w", w.companyName, err))
				if !yield(model.RawPosting{}, err) || !skippable(err) {
					return
				}
				if offset+workdayPageSize >= total {
					return
				}
				continue
			}
			total = listResp.Total
			if len(listResp.JobPostings) == 0 {
				return
			}

			postings, errs := w.fetchDetails(ctx, listResp.JobPostings)
			for i := range postings {
				if errs[i] != nil {
					if !yield(model.RawPosting{}, errs[i]) || !skippable(errs[i]) {
						return
					}
					continue
				}
				if !yield(postings[i], nil) {
					return
				}
			}

			// Listings come newest first, so once the last one on a page is
			// at or before the cursor every later page is too.
			if !since.IsZero() {
				last := listResp.JobPostings[len(listResp.JobPostings)-1]
				if t := w.parsePostedOn(last.PostedOn); t != nil && !t.After(since) {
					return
				}
			}
			if offset+workdayPageSize >= total {
				return
			}
		}
	}
}

// fetchDetails runs detail requests concurrently and returns results in
// listing order.
func (w *Workday) fetchDetails(ctx context.Context, listings []workdayListing) ([]model.RawPosting, []error) {
	postings := make([]model.RawPosting, len(listings))
	errs := make([]error, len(listings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for i, l := range listings {
		g.Go(func() error {
			p, err := w.fetchDetail(gctx, l)
			if err != nil {
				errs[i] = pageFailure(w.Name(), l.ExternalPath, false, err)
				return nil
			}
			postings[i] = p
			return nil
		})
	}
	_ = g.Wait()
	return postings, errs
}

func (w *Workday) fetchDetail(ctx context.Context, listing workdayListing) (model.RawPosting, error) {
	var detail workdayDetailResponse
	if err := w.client.GetJSON(ctx, w.baseURL+"/"+strings.TrimLeft(listing.ExternalPath, "/"), nil, &detail); err != nil {
		return model.RawPosting{}, fmt.Errorf("workday detail fetch for %s: %w", w.companyName, err)
	}

	info := detail.JobPostingInfo

	location := info.Location
	if location == "" && !isAmbiguousLocation(listing.LocationsText) {
		location = listing.LocationsText
	}
	if len(info.AdditionalLocations) > 0 {
		location = location + "; " + strings.Join(info.AdditionalLocations, "; ")
	}

	id := info.JobReqID
	if id == "" {
		id = listing.ExternalPath
	}
	title := info.Title
	if title == "" {
		title = listing.Title
	}

	p := model.RawPosting{
		SourceID:       id,
		Company:        w.companyName,
		Title:          title,
		Location:       location,
		Description:    extractText(info.JobDescription),
		EmploymentType: info.TimeType,
		ApplyURL:       info.ExternalURL,
		Source:         "company:workday",
	}

	// Prefer startDate (format "2006-01-02"), fall back to postedOn parsing
	if info.StartDate != "" {
		if t, err := time.Parse("2006-01-02", info.StartDate); err == nil {
			p.PostedAt = &t
		}
	}
	if p.PostedAt == nil {
		p.PostedAt = w.parsePostedOn(info.PostedOn)
	}
	if p.PostedAt == nil {
		p.PostedAt = w.parsePostedOn(listing.PostedOn)
	}
	return p, nil
}

var ambiguousLocationRegex = regexp.MustCompile(`^\d+ Locations?$`)

// isAmbiguousLocation returns true for Workday location strings like
// "2 Locations" where the actual location is unknown.
func isAmbiguousLocation(loc string) bool {
	return ambiguousLocationRegex.MatchString(loc)
}

var daysAgoRegex = regexp.MustCompile(`^Posted (\d+)\+? Days? Ago$`)

// parsePostedOn converts a Workday relative date string to an approximate
// timestamp at midnight UTC.
func (w *Workday) parsePostedOn(postedOn string) *time.Time {
	now := w.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch postedOn {
	case "Posted Today":
		return &today
	case "Posted Yesterday":
		t := today.AddDate(0, 0, -1)
		return &t
	}

	m := daysAgoRegex.FindStringSubmatch(postedOn)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	t := today.AddDate(0, 0, -n)
	return &t
}
