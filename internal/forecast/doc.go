// Package forecast predicts a runner's next race time per distance category.
//
// Matching is a case-insensitive substring search on the runner name, so a
// partial query may pool several runners; the report then opens with a notice
// naming them. Each distance category with at least two timed results gets a
// small-sample ARIMA fit and a one-step forecast with a 95% interval.
// Categories fail independently.
package forecast
