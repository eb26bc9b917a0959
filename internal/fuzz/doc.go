// Package fuzztests houses Go fuzz harnesses that feed arbitrary bytes
// through the fixture loader and every analysis pass. They guard against
// panics, hangs and spans escaping their file.
//
// Inputs come from testdata/fixtures plus a few hand-written shapes; no
// corpus files are written.
package fuzztests
