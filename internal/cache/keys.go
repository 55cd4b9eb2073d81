package cache

import "fmt"

// trackingRecordKey is the one fixed key holding the durable job tracking
// record. Changing it orphans records written by earlier builds; they then
// read as absent, which is the intended failure mode.
const trackingRecordKey = "rankscope:job:tracking"

func TrackingRecordKey() string {
	return trackingRecordKey
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func AdviceKey(projectID string) string {
	return fmt.Sprintf("advice:%s", projectID)
}
