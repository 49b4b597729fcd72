// Package menu turns a dining hall meal view into stations, items and
// nutrients.
//
// The pure parsers (ParseMenu, ParseDetail, ParseIngredients,
// NormalizeNutrientLabel) operate on HTML fragments through goquery. The
// Extractor drives a browser.Session through the per-item nutrition panel
// protocol and records item failures inline instead of aborting the meal.
package menu
