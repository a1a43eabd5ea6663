package ur

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// words holds the 256 four-letter bytewords, concatenated.
const words = "" +
	"ableacidalsoapexaquaarchatomauntawayaxisbackbaldbarnbeltbetabias" +
	"bluebodybragbrewbulbbuzzcalmcashcatschefcityclawcodecolacookcost" +
	"cruxcurlcuspcyandarkdatadaysdelidicedietdoordowndrawdropdrumdull" +
	"dutyeacheasyechoedgeepicevenexamexiteyesfactfairfernfigsfilmfish" +
	"fizzflapflewfluxfoxyfreefrogfuelfundgalagamegeargemsgiftgirlglow" +
	"goodgraygrimgurugushgyrohalfhanghardhawkheathelphighhillholyhope" +
	"hornhutsicedideaidleinchinkyintoirisironitemjadejazzjoinjoltjowl" +
	"judojugsjumpjunkjurykeepkenokeptkeyskickkilnkingkitekiwiknoblamb" +
	"lavalazyleaflegsliarlimplionlistlogoloudloveluaulucklungmainmany" +
	"mathmazememomenumeowmildmintmissmonknailnavyneednewsnextnoonnote" +
	"numbobeyoboeomitonyxopenovalowlspaidpartpeckplaypluspoempoolpose" +
	"puffpumapurrquadquizraceramprealredorichroadrockroofrubyruinruns" +
	"rustsafesagascarsetssilkskewslotsoapsolosongstubsurfswantacotask" +
	"taxitenttiedtimetinytoiltombtoystriptunatwinuglyundouniturgeuser" +
	"vastveryvetovialvibeviewvisavoidvowswallwandwarmwaspwavewaxywebs" +
	"whatwhenwhizwolfworkyankyawnyellyogayurtzapszerozestzinczonezoom"

var (
	// ErrBytewords is returned for malformed bytewords text.
	ErrBytewords = errors.New("invalid bytewords")
	// ErrChecksum is returned when the bytewords checksum does not match.
	ErrChecksum = errors.New("bytewords checksum mismatch")
)

// minimal maps the first and last letter of each word to its byte value.
var minimal = func() map[[2]byte]byte {
	m := make(map[[2]byte]byte, 256)
	for i := 0; i < 256; i++ {
		w := words[i*4 : i*4+4]
		m[[2]byte{w[0], w[3]}] = byte(i)
	}
	return m
}()

// Word returns the full byteword for b.
func Word(b byte) string {
	i := int(b) * 4
	return words[i : i+4]
}

// EncodeMinimal encodes data as minimal bytewords with a trailing CRC-32.
func EncodeMinimal(data []byte) string {
	buf := make([]byte, 0, (len(data)+4)*2)
	for _, b := range appendChecksum(data) {
		w := Word(b)
		buf = append(buf, w[0], w[3])
	}
	return string(buf)
}

// DecodeMinimal decodes lowercase minimal bytewords and verifies the checksum.
func DecodeMinimal(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrBytewords, len(s))
	}
	if len(s) < 10 {
		return nil, fmt.Errorf("%w: too short", ErrBytewords)
	}

	out := make([]byte, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		b, ok := minimal[[2]byte{s[i], s[i+1]}]
		if !ok {
			return nil, fmt.Errorf("%w: unknown word %q", ErrBytewords, s[i:i+2])
		}
		out = append(out, b)
	}

	body, sum := out[:len(out)-4], out[len(out)-4:]
	if crc32.ChecksumIEEE(body) != binary.BigEndian.Uint32(sum) {
		return nil, ErrChecksum
	}
	return body, nil
}

func appendChecksum(data []byte) []byte {
	out := make([]byte, len(data), len(data)+4)
	copy(out, data)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(data))
}
