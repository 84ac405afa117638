package mq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKafkaHeaderCarrier(t *testing.T) {
	carrier := KafkaHeaderCarrier{}

	carrier.Set("traceparent", "00-abc-def-01")
	carrier.Set("baggage", "k=v")

	require.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))
	require.Equal(t, "k=v", carrier.Get("baggage"))
	require.Empty(t, carrier.Get("missing"))
	require.ElementsMatch(t, []string{"traceparent", "baggage"}, carrier.Keys())
}

func TestKafkaHeaderCarrierOverwrite(t *testing.T) {
	carrier := KafkaHeaderCarrier{}
	carrier.Set("traceparent", "first")
	carrier.Set("traceparent", "second")

	require.Equal(t, "second", carrier.Get("traceparent"))
	require.Len(t, carrier.Keys(), 1)
}
