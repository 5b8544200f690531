// Package formats provides parsers for 3D interchange formats read by the
// converter importers.
package formats
