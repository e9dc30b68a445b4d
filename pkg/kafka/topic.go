package kafka

import "fmt"

// TopicPrefix is the prefix for every topic this module writes to.
const TopicPrefix = "fashionfinder"

// Topic constructs a fully-qualified topic name.
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}
