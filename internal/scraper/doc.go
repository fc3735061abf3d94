// Package scraper fetches the checked-out items of a library patron account.
//
// The scraper logs in to a Sierra/Encore style patron page ("patroninfo") with the
// patron's barcode and PIN, follows the "Items Checked Out" link and extracts one
// RawItem per row of the checkout table. Two fetchers share the same HTML parser:
// Scraper drives the login over plain HTTP with a cookie-carrying resty client, and
// Browser drives a headless Chromium for catalogs that need JavaScript to log in.
package scraper
