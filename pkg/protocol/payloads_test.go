package protocol

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/types"
)

func mustPubKey(t *testing.T) *keys.PublicKey {
	t.Helper()
	priv, err := keys.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	return priv.PublicKey()
}

func sampleBlock(t *testing.T) types.Block {
	t.Helper()
	pub := mustPubKey(t)
	return types.Block{
		Header: types.BlockHeader{
			Timestamp:     1_700_000_000,
			PrevBlockHash: types.Hash{0x01},
			Nonce:         42,
			Target:        uint256.NewInt(0xFFFFFFFF),
			MerkleRoot:    types.Hash{0x02},
		},
		Transactions: []types.Transaction{
			{
				Inputs:  []types.TransactionInput{{PrevOutputHash: types.ZeroHash}},
				Outputs: []types.TransactionOutput{{Value: 5000, UniqueID: uuid.New(), Pubkey: pub}},
			},
		},
	}
}

// roundTrip encodes msg through a frame and decodes it back, as two peers
// would across a TCP connection.
func roundTrip(t *testing.T, msg any) any {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteMessage(&buf, msg); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return got
}

func TestRoundTripDiscoverNodes(t *testing.T) {
	roundTrip(t, DiscoverNodes{})
}

func TestRoundTripNodeList(t *testing.T) {
	got := roundTrip(t, NodeList{Addresses: []string{"127.0.0.1:9000", "10.0.0.2:9001"}})
	nl, ok := got.(NodeList)
	if !ok {
		t.Fatalf("got %T, want NodeList", got)
	}
	if len(nl.Addresses) != 2 || nl.Addresses[0] != "127.0.0.1:9000" || nl.Addresses[1] != "10.0.0.2:9001" {
		t.Fatalf("addresses round-tripped wrong: %v", nl.Addresses)
	}
}

func TestRoundTripAskDifference(t *testing.T) {
	got := roundTrip(t, AskDifference{Height: 12345})
	ad, ok := got.(AskDifference)
	if !ok || ad.Height != 12345 {
		t.Fatalf("got %#v, want AskDifference{Height: 12345}", got)
	}
}

func TestRoundTripDifference(t *testing.T) {
	got := roundTrip(t, Difference{Delta: -7})
	d, ok := got.(Difference)
	if !ok || d.Delta != -7 {
		t.Fatalf("got %#v, want Difference{Delta: -7}", got)
	}
}

func TestRoundTripFetchBlock(t *testing.T) {
	got := roundTrip(t, FetchBlock{Height: 99})
	fb, ok := got.(FetchBlock)
	if !ok || fb.Height != 99 {
		t.Fatalf("got %#v, want FetchBlock{Height: 99}", got)
	}
}

func TestRoundTripNewBlock(t *testing.T) {
	block := sampleBlock(t)
	got := roundTrip(t, NewBlock{Block: block})
	nb, ok := got.(NewBlock)
	if !ok {
		t.Fatalf("got %T, want NewBlock", got)
	}
	if nb.Block.Header.Nonce != block.Header.Nonce || len(nb.Block.Transactions) != 1 {
		t.Fatalf("block round-tripped wrong: %#v", nb.Block.Header)
	}
}

func TestRoundTripSubmitTransaction(t *testing.T) {
	block := sampleBlock(t)
	tx := block.Transactions[0]
	got := roundTrip(t, SubmitTransaction{Tx: tx})
	st, ok := got.(SubmitTransaction)
	if !ok || len(st.Tx.Outputs) != 1 || st.Tx.Outputs[0].Value != 5000 {
		t.Fatalf("transaction round-tripped wrong: %#v", got)
	}
}

func TestRoundTripFetchTemplateAndFetchUTXOs(t *testing.T) {
	pub := mustPubKey(t)

	got := roundTrip(t, FetchTemplate{Pubkey: pub})
	ft, ok := got.(FetchTemplate)
	if !ok || !ft.Pubkey.Equal(pub) {
		t.Fatalf("FetchTemplate pubkey round-tripped wrong: %#v", got)
	}

	got2 := roundTrip(t, FetchUTXOs{Pubkey: pub})
	fu, ok := got2.(FetchUTXOs)
	if !ok || !fu.Pubkey.Equal(pub) {
		t.Fatalf("FetchUTXOs pubkey round-tripped wrong: %#v", got2)
	}
}

func TestRoundTripUTXOs(t *testing.T) {
	pub := mustPubKey(t)
	msg := UTXOs{Entries: []UTXOEntryWire{
		{Output: types.TransactionOutput{Value: 10, UniqueID: uuid.New(), Pubkey: pub}, Marked: false},
		{Output: types.TransactionOutput{Value: 20, UniqueID: uuid.New(), Pubkey: pub}, Marked: true},
	}}
	got := roundTrip(t, msg)
	u, ok := got.(UTXOs)
	if !ok || len(u.Entries) != 2 {
		t.Fatalf("got %#v, want 2 UTXO entries", got)
	}
	if u.Entries[0].Marked || !u.Entries[1].Marked {
		t.Fatalf("marked flags round-tripped wrong: %#v", u.Entries)
	}
}

func TestRoundTripTemplateValidity(t *testing.T) {
	got := roundTrip(t, TemplateValidity{Valid: true})
	tv, ok := got.(TemplateValidity)
	if !ok || !tv.Valid {
		t.Fatalf("got %#v, want TemplateValidity{Valid: true}", got)
	}
}

func TestReadMessageRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, DiscoverNodes{}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	corrupted := buf.Bytes()
	corrupted[0] ^= 0xFF

	if _, err := ReadMessage(bytes.NewReader(corrupted)); err == nil {
		t.Fatal("expected a bad-magic error, got nil")
	}
}

func TestReadMessageRejectsChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, AskDifference{Height: 1}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF

	if _, err := ReadMessage(bytes.NewReader(corrupted)); err == nil {
		t.Fatal("expected a checksum-mismatch error, got nil")
	}
}
