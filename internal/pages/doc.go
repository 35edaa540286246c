// Package pages renders the HTML upload form and the player page that every
// library serves next to its resources.
package pages
