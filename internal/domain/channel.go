package domain

// ChannelType identifies a notification transport.
type ChannelType string

// Channel types.
const (
	ChannelTypeMattermost ChannelType = "mattermost"
	ChannelTypeSlack      ChannelType = "slack"
)
