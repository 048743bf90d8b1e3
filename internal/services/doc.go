// Package services issues authenticated requests against the song request
// API. [Executor] owns bearer injection, failure classification, and the
// single refresh-and-retry pass on expired credentials; [Client] builds the
// queue, playback, and settings operations on top of it and owns response
// parsing.
package services
