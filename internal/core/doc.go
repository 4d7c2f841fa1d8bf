// Package core cleans CSV exports of social-media posts.
//
// A clean loads a [Table] whose header must include created_at, text and
// entities, then runs a fixed list of derivations over it:
//
//	created_at      parsed in place into a [Timestamp] (null when empty)
//	date            calendar [Date] of created_at in its own offset
//	tweet_length    code points in text (null when text is null)
//	hashtags        tags from entities["hashtags"][*]["tag"]
//	hashtag_count   len(hashtags)
//	mentions        usernames from entities["mentions"][*]["username"]
//	mentions_count  len(mentions)
//
// Derived columns are appended in that order, or replaced in place when the
// input already has them, so cleaning a cleaned file is a no-op.
//
// # Entities
//
// The entities column holds a dict printed with single quotes. The default
// [ParserReplace] swaps every ' for " and decodes JSON, which fails on values
// containing apostrophes. [ParserLiteral] parses the literal directly. A row
// whose entities cannot be decoded gets an empty list; [CleanStats] counts
// those fallbacks.
//
// # Failure
//
// A created_at value that matches none of the accepted layouts fails the whole
// clean with a [*ParseError]. Nothing is written in that case: [SaveTable]
// writes through a temp file and renames it into place.
//
// # Running
//
// [Service.Run] is the batch entry point used by the CLI. [Service.CleanStream]
// cleans a reader into a writer for the HTTP server and is bounded by a
// [Limiter]. Errors map to user-facing codes with [MapError].
package core
