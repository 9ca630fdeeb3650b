// Package footage holds the stock media domain model shared by selection,
// ranking, download and composition.
//
// A paragraph's visuals are an ordered list of Slots. Each Slot has a Kind
// (image or video), a key such as "image3", the Candidates gathered for it
// and, once ranked, the Selected candidate. Registry enforces that no URL or
// description is used twice in one run; it is created per run and passed
// explicitly to the components that need it.
package footage
