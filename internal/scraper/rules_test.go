package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageFromHTML(t *testing.T, html string) *listingPage {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return newListingPage(doc, "https://example.com/black-owned-business/test", "example.com", "/black-owned-business-type/")
}

func TestNormalizePhone(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"5135551234", "(513) 555-1234"},
		{"(513) 555-1234", "(513) 555-1234"},
		{"513-555-1234", "(513) 555-1234"},
		{"513.555.1234", "(513) 555-1234"},
		{"555-1234", "555-1234"}, // 7 digits, no normalization attempted
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, NormalizePhone(tc.input))
	}
}

func TestPhoneTextPattern(t *testing.T) {
	p := pageFromHTML(t, `<html><body><p>Call 5135551234 now</p></body></html>`)
	assert.Equal(t, "(513) 555-1234", firstMatch(phoneRules, p))

	// Seven-digit fragment comes back raw
	p = pageFromHTML(t, `<html><body><p>Call 555-1234 now</p></body></html>`)
	assert.Equal(t, "555-1234", firstMatch(phoneRules, p))
}

func TestPhoneTelLinkBeatsText(t *testing.T) {
	p := pageFromHTML(t, `<html><body>
		<a href="tel:+15135559999">(513) 555-9999</a>
		<p>Unrelated 5135551234</p>
	</body></html>`)
	assert.Equal(t, "(513) 555-9999", firstMatch(phoneRules, p))
}

func TestCleanAddress(t *testing.T) {
	assert.Equal(t,
		"123 Main Street",
		CleanAddress("123  Main   Street"))

	// Trailing navigational boilerplate is stripped, not optional
	assert.Equal(t,
		"123 Main Street",
		CleanAddress("123 Main Street Post navigation Older posts"))
	assert.Equal(t,
		"45 Vine Ave",
		CleanAddress("45 Vine Ave Previous Business Joe's Cafe"))
}

func TestAddressTextPattern(t *testing.T) {
	p := pageFromHTML(t, `<html><body><p>Visit us at 123 Main Street Post navigation</p></body></html>`)
	assert.Equal(t, "123 Main Street", firstMatch(addressRules, p))
}

func TestEmailRules(t *testing.T) {
	// mailto link wins
	p := pageFromHTML(t, `<html><body><a href="mailto:joe@joescafe.com?subject=hi">Contact</a></body></html>`)
	assert.Equal(t, "joe@joescafe.com", firstMatch(emailRules, p))

	// Cloudflare-protected email reported as available
	p = pageFromHTML(t, `<html><body><a href="/cdn-cgi/l/email-protection#abc">Contact</a></body></html>`)
	assert.Equal(t, "Email available (Cloudflare protected)", firstMatch(emailRules, p))

	// Noise domains are rejected, first surviving match wins
	p = pageFromHTML(t, `<html><body><p>errors to admin@sentry.io, reach us at hello@joescafe.com</p></body></html>`)
	assert.Equal(t, "hello@joescafe.com", firstMatch(emailRules, p))

	// Nothing but noise yields empty
	p = pageFromHTML(t, `<html><body><p>see spec@schema.org and user@example.com</p></body></html>`)
	assert.Equal(t, "", firstMatch(emailRules, p))
}

func TestWebsiteRules(t *testing.T) {
	p := pageFromHTML(t, `<html><body>
		<a href="https://facebook.com/joescafe">Facebook</a>
		<a href="https://www.example.com/black-owned-business/other">Other listing</a>
		<a href="https://mailchi.mp/newsletter">Subscribe</a>
		<a href="https://joescafe.com">Our site</a>
	</body></html>`)
	assert.Equal(t, "https://joescafe.com", firstMatch(websiteRules, p))
}

func TestCategoryRulesDeduplicated(t *testing.T) {
	p := pageFromHTML(t, `<html><body>
		<a href="/black-owned-business-type/restaurants/">Restaurants</a>
		<a href="/black-owned-business-type/catering/">Catering</a>
		<a href="/black-owned-business-type/restaurants/">Restaurants</a>
		<a href="/black-owned-business-type/bbq/">BBQ</a>
	</body></html>`)
	// Deduplicated, first-appearance order; short tags (<=3 chars) dropped
	assert.Equal(t, "Restaurants, Catering", firstMatch(categoryRules, p))
}

func TestDescriptionTruncation(t *testing.T) {
	long := strings.Repeat("a", 600)
	p := pageFromHTML(t, `<html><body><div class="entry-content"><p>`+long+`</p></div></body></html>`)
	desc := firstMatch(descriptionRules, p)
	assert.Len(t, desc, maxDescriptionLength+3)
	assert.True(t, strings.HasSuffix(desc, "..."))
}

func TestDescriptionSkipsShortParagraphs(t *testing.T) {
	p := pageFromHTML(t, `<html><body><div class="entry-content">
		<p>Read More</p>
		<p>A family-owned cafe serving the neighborhood since 1992.</p>
		<p>Second paragraph with plenty of detail about the menu.</p>
	</div></body></html>`)
	desc := firstMatch(descriptionRules, p)
	assert.NotContains(t, desc, "Read More")
	assert.Contains(t, desc, "family-owned cafe")
	assert.Contains(t, desc, "Second paragraph")
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "abcde...", TruncateText("abcdefgh", 5))
}

func TestExtractLocalBusinessArrayForm(t *testing.T) {
	p := pageFromHTML(t, `<html><head><script type="application/ld+json">
	[{"@type":"WebSite","name":"The Directory"},
	 {"@type":"LocalBusiness","name":"Joe's Cafe","telephone":"(513) 555-1234",
	  "address":{"streetAddress":"123 Main St","addressLocality":"Cincinnati","addressRegion":"OH","postalCode":"45202"}}]
	</script></head><body></body></html>`)
	if assert.NotNil(t, p.ld) {
		assert.Equal(t, "Joe's Cafe", p.ld.Name)
		assert.Equal(t, "123 Main St", p.ld.address.StreetAddress)
		assert.Equal(t, "Cincinnati", p.ld.address.AddressLocality)
	}
}

func TestExtractLocalBusinessStringAddress(t *testing.T) {
	p := pageFromHTML(t, `<html><head><script type="application/ld+json">
	{"@type":"LocalBusiness","name":"Joe's Cafe","address":"123 Main St, Cincinnati OH"}
	</script></head><body></body></html>`)
	if assert.NotNil(t, p.ld) {
		assert.Equal(t, "123 Main St, Cincinnati OH", p.ld.address.StreetAddress)
	}
}
