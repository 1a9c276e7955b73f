// Package substack fetches a Substack blog's latest post link and extracts
// post body text. Selectors match Substack's rendered markup: the homepage
// links posts with a.sitemap-link anchors and post pages wrap the article in
// a div with the "body" class.
package substack
