package common

// MinPinLength is the shortest PIN accepted before any crypto work is done.
const MinPinLength = 6

// PinnedOrderKey is the user preference holding the manual pin ordering.
const PinnedOrderKey = "pinned_order"
