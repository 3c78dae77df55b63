package redis

import "strconv"

const (
	// KeyPrefixRound is the prefix for per-round availability documents
	KeyPrefixRound = "ctfboard:round:"
	// KeyRounds is the sorted set of round numbers, scored by round number
	KeyRounds = "ctfboard:rounds"
	// KeyScores is the hash of team -> score
	KeyScores = "ctfboard:scores"
	// KeyScoresUpdated holds the unix time of the last score publish
	KeyScoresUpdated = "ctfboard:scores:updated"
)

// RoundKey returns the Redis key for a round by number
func RoundKey(number int) string {
	return KeyPrefixRound + strconv.Itoa(number)
}
