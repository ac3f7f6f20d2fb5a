package core

// PhishingThreshold is the ensemble probability a scan must exceed to be
// reported as phishing
const PhishingThreshold = 0.9

// Decide averages the two model probabilities and applies PhishingThreshold.
// A confidence of exactly the threshold is legitimate.
func Decide(lexicalProb, sequentialProb float64) (Verdict, float64) {
	confidence := (lexicalProb + sequentialProb) / 2
	if confidence > PhishingThreshold {
		return VerdictPhishing, confidence
	}
	return VerdictLegitimate, confidence
}
