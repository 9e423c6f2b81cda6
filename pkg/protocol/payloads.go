package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/serialization"
	"github.com/educhain/chainnode/pkg/types"
)

// DiscoverNodes asks a node to announce the peers it knows about.
type DiscoverNodes struct{}

// NodeList answers DiscoverNodes with every known peer address.
type NodeList struct {
	Addresses []string
}

// AskDifference asks how many blocks a node has beyond height H.
type AskDifference struct {
	Height uint32
}

// Difference answers AskDifference with chain_len - h (may be negative).
type Difference struct {
	Delta int32
}

// FetchBlock requests the block at a given height.
type FetchBlock struct {
	Height uint64
}

// NewBlock both announces a mined block (gossip) and answers FetchBlock.
type NewBlock struct {
	Block types.Block
}

// NewTransaction gossips a transaction another node already admitted.
type NewTransaction struct {
	Tx types.Transaction
}

// SubmitTransaction is a wallet's request to admit and broadcast tx.
type SubmitTransaction struct {
	Tx types.Transaction
}

// SubmitTemplate is a miner's sealed candidate block, ready for validation
// and append.
type SubmitTemplate struct {
	Block types.Block
}

// FetchTemplate is a miner's request for a fresh candidate block paying
// its reward to Pubkey.
type FetchTemplate struct {
	Pubkey *keys.PublicKey
}

// ValidateTemplate asks whether Block's prev hash still matches the tip,
// so a miner can drop stale work instead of submitting it.
type ValidateTemplate struct {
	Block types.Block
}

// FetchUTXOs is a wallet's request for every UTXO owned by Pubkey.
type FetchUTXOs struct {
	Pubkey *keys.PublicKey
}

// Template answers FetchTemplate with an unsealed candidate block.
type Template struct {
	Block types.Block
}

// UTXOEntryWire is one entry of a UTXOs response.
type UTXOEntryWire struct {
	Output types.TransactionOutput
	Marked bool
}

// UTXOs answers FetchUTXOs.
type UTXOs struct {
	Entries []UTXOEntryWire
}

// TemplateValidity answers ValidateTemplate.
type TemplateValidity struct {
	Valid bool
}

// EncodePayload serializes msg's fields (without the frame header) and
// returns the Command it belongs under.
func EncodePayload(msg any) (Command, []byte, error) {
	var buf bytes.Buffer

	switch m := msg.(type) {
	case DiscoverNodes:
		return CmdDiscoverNodes, nil, nil

	case NodeList:
		if err := serialization.WriteVarInt(&buf, uint64(len(m.Addresses))); err != nil {
			return 0, nil, err
		}
		for _, addr := range m.Addresses {
			if err := serialization.WriteBytes(&buf, []byte(addr)); err != nil {
				return 0, nil, err
			}
		}
		return CmdNodeList, buf.Bytes(), nil

	case AskDifference:
		if err := serialization.WriteUint32(&buf, m.Height); err != nil {
			return 0, nil, err
		}
		return CmdAskDifference, buf.Bytes(), nil

	case Difference:
		if err := serialization.WriteInt32(&buf, m.Delta); err != nil {
			return 0, nil, err
		}
		return CmdDifference, buf.Bytes(), nil

	case FetchBlock:
		if err := serialization.WriteUint64(&buf, m.Height); err != nil {
			return 0, nil, err
		}
		return CmdFetchBlock, buf.Bytes(), nil

	case NewBlock:
		b, err := serialization.SerializeBlock(&m.Block)
		if err != nil {
			return 0, nil, err
		}
		return CmdNewBlock, b, nil

	case NewTransaction:
		b, err := serialization.SerializeTransaction(&m.Tx)
		if err != nil {
			return 0, nil, err
		}
		return CmdNewTransaction, b, nil

	case SubmitTransaction:
		b, err := serialization.SerializeTransaction(&m.Tx)
		if err != nil {
			return 0, nil, err
		}
		return CmdSubmitTransaction, b, nil

	case SubmitTemplate:
		b, err := serialization.SerializeBlock(&m.Block)
		if err != nil {
			return 0, nil, err
		}
		return CmdSubmitTemplate, b, nil

	case FetchTemplate:
		return CmdFetchTemplate, m.Pubkey.Bytes(true), nil

	case ValidateTemplate:
		b, err := serialization.SerializeBlock(&m.Block)
		if err != nil {
			return 0, nil, err
		}
		return CmdValidateTemplate, b, nil

	case FetchUTXOs:
		return CmdFetchUTXOs, m.Pubkey.Bytes(true), nil

	case Template:
		b, err := serialization.SerializeBlock(&m.Block)
		if err != nil {
			return 0, nil, err
		}
		return CmdTemplate, b, nil

	case UTXOs:
		if err := serialization.WriteVarInt(&buf, uint64(len(m.Entries))); err != nil {
			return 0, nil, err
		}
		for _, e := range m.Entries {
			outBytes, err := serialization.SerializeOutput(&e.Output)
			if err != nil {
				return 0, nil, err
			}
			buf.Write(outBytes)
			if e.Marked {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		}
		return CmdUTXOs, buf.Bytes(), nil

	case TemplateValidity:
		if m.Valid {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return CmdTemplateValidity, buf.Bytes(), nil

	default:
		return 0, nil, fmt.Errorf("protocol: unknown message type %T", msg)
	}
}

// DecodePayload parses a frame's payload according to its command tag.
func DecodePayload(cmd Command, payload []byte) (any, error) {
	r := bytes.NewReader(payload)

	switch cmd {
	case CmdDiscoverNodes:
		return DiscoverNodes{}, nil

	case CmdNodeList:
		count, err := serialization.ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		addrs := make([]string, count)
		for i := range addrs {
			b, err := serialization.ReadBytes(r)
			if err != nil {
				return nil, err
			}
			addrs[i] = string(b)
		}
		return NodeList{Addresses: addrs}, nil

	case CmdAskDifference:
		h, err := serialization.ReadUint32(r)
		if err != nil {
			return nil, err
		}
		return AskDifference{Height: h}, nil

	case CmdDifference:
		d, err := serialization.ReadInt32(r)
		if err != nil {
			return nil, err
		}
		return Difference{Delta: d}, nil

	case CmdFetchBlock:
		h, err := serialization.ReadUint64(r)
		if err != nil {
			return nil, err
		}
		return FetchBlock{Height: h}, nil

	case CmdNewBlock:
		b, err := serialization.DeserializeBlock(payload)
		if err != nil {
			return nil, err
		}
		return NewBlock{Block: *b}, nil

	case CmdNewTransaction:
		tx, err := serialization.DeserializeTransaction(r)
		if err != nil {
			return nil, err
		}
		return NewTransaction{Tx: *tx}, nil

	case CmdSubmitTransaction:
		tx, err := serialization.DeserializeTransaction(r)
		if err != nil {
			return nil, err
		}
		return SubmitTransaction{Tx: *tx}, nil

	case CmdSubmitTemplate:
		b, err := serialization.DeserializeBlock(payload)
		if err != nil {
			return nil, err
		}
		return SubmitTemplate{Block: *b}, nil

	case CmdFetchTemplate:
		pub, err := keys.NewPublicKeyFromBytes(payload)
		if err != nil {
			return nil, err
		}
		return FetchTemplate{Pubkey: pub}, nil

	case CmdValidateTemplate:
		b, err := serialization.DeserializeBlock(payload)
		if err != nil {
			return nil, err
		}
		return ValidateTemplate{Block: *b}, nil

	case CmdFetchUTXOs:
		pub, err := keys.NewPublicKeyFromBytes(payload)
		if err != nil {
			return nil, err
		}
		return FetchUTXOs{Pubkey: pub}, nil

	case CmdTemplate:
		b, err := serialization.DeserializeBlock(payload)
		if err != nil {
			return nil, err
		}
		return Template{Block: *b}, nil

	case CmdUTXOs:
		count, err := serialization.ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		entries := make([]UTXOEntryWire, count)
		for i := range entries {
			out, err := serialization.DeserializeOutput(r)
			if err != nil {
				return nil, err
			}
			var markedByte [1]byte
			if _, err := io.ReadFull(r, markedByte[:]); err != nil {
				return nil, err
			}
			entries[i] = UTXOEntryWire{Output: *out, Marked: markedByte[0] == 1}
		}
		return UTXOs{Entries: entries}, nil

	case CmdTemplateValidity:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return TemplateValidity{Valid: b[0] == 1}, nil

	default:
		return nil, fmt.Errorf("protocol: unknown command tag %v", cmd)
	}
}

// WriteMessage encodes msg and writes it as a complete frame.
func WriteMessage(w io.Writer, msg any) error {
	cmd, payload, err := EncodePayload(msg)
	if err != nil {
		return err
	}
	return WriteFrame(w, Frame{Command: cmd, Payload: payload})
}

// ReadMessage reads a frame and decodes it into its typed payload.
func ReadMessage(r io.Reader) (any, error) {
	frame, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodePayload(frame.Command, frame.Payload)
}
