// Package integration handles external service interactions
package integration

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/simverse/riversim/internal/entities"
)

// Default source: the Serbian hydrometeorological service's daily surface
// water bulletin, used as real-world context next to the simulation.
const defaultBulletinURL = "https://www.hidmet.gov.rs/ciril/osmotreni/stanje_voda.php"

// ObservationScraper fetches observed station readings from a hydrology
// bulletin published as an HTML table.
type ObservationScraper struct {
	sourceURL string
}

// NewObservationScraper creates a new bulletin scraper
func NewObservationScraper(url string) *ObservationScraper {
	if url == "" {
		url = defaultBulletinURL
	}
	return &ObservationScraper{sourceURL: url}
}

// FetchObservations retrieves station readings from the bulletin page
func (sc *ObservationScraper) FetchObservations() ([]entities.Observation, error) {
	log.Printf("Sending HTTP request to hydrology bulletin")
	res, err := http.Get(sc.sourceURL)
	if err != nil {
		log.Printf("Error fetching bulletin: %v", err)
		return nil, fmt.Errorf("failed to fetch the bulletin: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != 200 {
		log.Printf("Received unexpected status code: %d %s", res.StatusCode, res.Status)
		return nil, fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		log.Printf("Error parsing bulletin HTML: %v", err)
		return nil, fmt.Errorf("failed to parse the bulletin: %v", err)
	}

	timestamp := sc.ExtractTimestamp(doc)

	var obs []entities.Observation
	rowCount := 0

	// The bulletin lays out one station per table row: river name in the
	// first cell, station link in the third, level and temperature further in.
	doc.Find("table tbody tr").Each(func(index int, row *goquery.Selection) {
		rowCount++
		cells := row.Find("td")
		if cells.Length() >= 10 {
			river := strings.TrimSpace(cells.Eq(0).Text())
			station := strings.TrimSpace(cells.Eq(2).Find("a").Text())
			waterLevel := strings.TrimSpace(cells.Eq(5).Text())
			waterTemp := strings.TrimSpace(cells.Eq(8).Text())

			if river == "" || station == "" {
				return
			}

			obs = append(obs, entities.Observation{
				River:      river,
				Station:    station,
				WaterLevel: waterLevel,
				WaterTemp:  waterTemp,
				Timestamp:  timestamp,
			})
		}
	})

	log.Printf("Parsed %d rows, extracted %d valid observations", rowCount, len(obs))
	return obs, nil
}

// bulletinTimestamp matches the header line of the bulletin, e.g.
// "Хидролошки подаци: ПЕТАК 18.04.2025. време: 8:00 (06:00 UTC)"
var bulletinTimestamp = regexp.MustCompile(`(\d{2})\.(\d{2})\.(\d{4})\.?\s+време:\s*(\d{1,2}):(\d{2})`)

// ExtractTimestamp extracts the bulletin's publication time from the page
// header, falling back to the current time when the header is missing or
// unparseable.
func (sc *ObservationScraper) ExtractTimestamp(doc *goquery.Document) time.Time {
	timestampText := ""
	doc.Find("h4, div").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if strings.Contains(text, "Хидролошки подаци:") {
			timestampText = text
			return false
		}
		return true
	})

	if timestampText == "" {
		log.Printf("Bulletin timestamp not found, using current time")
		return time.Now()
	}

	m := bulletinTimestamp.FindStringSubmatch(timestampText)
	if m == nil {
		log.Printf("Failed to parse bulletin timestamp from: %s", timestampText)
		return time.Now()
	}

	// The bulletin posts local time; the layout carries day.month.year hour:minute.
	ts, err := time.ParseInLocation(
		"02.01.2006 15:04",
		fmt.Sprintf("%s.%s.%s %s:%s", m[1], m[2], m[3], m[4], m[5]),
		time.UTC,
	)
	if err != nil {
		log.Printf("Failed to parse bulletin timestamp '%s': %v", timestampText, err)
		return time.Now()
	}

	log.Printf("Extracted bulletin timestamp: %s", ts.Format(time.RFC3339))
	return ts
}
