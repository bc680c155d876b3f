// Package chemjson implements the JSON serialization of fraggrow data
// types. It's meant for the communication of fraggrow programs with
// independent programs, which can be written in languages other than
// Go, as long as they can read and write JSON.
//
// Every message is a single line of JSON. A PipePredictor sends each
// batch to be predicted as a Request line and reads back a Response
// line, for instance through the stdin and stdout of a model server.
// Fragments can also be written one per line, as an alternative to
// the stf format.
package chemjson
