package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseLegacyArgs_CoinAndReprocess accepts the two-argument form
func TestParseLegacyArgs_CoinAndReprocess(t *testing.T) {
	coins, force, err := parseLegacyArgs([]string{"ETH", "reprocess_yes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH"}, coins)
	assert.True(t, force)

	coins, force, err = parseLegacyArgs([]string{"xrp", "reprocess_no"})
	require.NoError(t, err)
	assert.Equal(t, []string{"XRP"}, coins)
	assert.False(t, force)
}

// TestParseLegacyArgs_CoinOnly defaults to no reprocess
func TestParseLegacyArgs_CoinOnly(t *testing.T) {
	coins, force, err := parseLegacyArgs([]string{"DOGE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"DOGE"}, coins)
	assert.False(t, force)
}

// TestParseLegacyArgs_ReprocessOnly defaults the coin to BTC
func TestParseLegacyArgs_ReprocessOnly(t *testing.T) {
	coins, force, err := parseLegacyArgs([]string{"reprocess_yes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC"}, coins)
	assert.True(t, force)
}

// TestParseLegacyArgs_BadToken rejects an unknown reprocess value
func TestParseLegacyArgs_BadToken(t *testing.T) {
	_, _, err := parseLegacyArgs([]string{"ETH", "reprocess_maybe"})
	assert.Error(t, err)

	_, _, err = parseLegacyArgs([]string{"a", "b", "c"})
	assert.Error(t, err)
}

// TestSplitCoins normalizes and drops empty entries
func TestSplitCoins(t *testing.T) {
	assert.Equal(t, []string{"BTC", "ETH"}, splitCoins(" btc , eth ,"))
	assert.Nil(t, splitCoins(" , "))
}
