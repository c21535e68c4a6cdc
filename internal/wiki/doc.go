// Package wiki reads the parts of a wiki page the downloader cares about:
// thumbnail elements selected by CSS class, the page title used to name
// the archive, and the pagination cell that links to the next page.
package wiki
