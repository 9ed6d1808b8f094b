package quic

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func longHeaderPacket(typeBits byte, version uint32, dcid, scid []byte) []byte {
	buf := []byte{0x80 | (typeBits << 4)}
	buf = append(buf, byte(version>>24), byte(version>>16), byte(version>>8), byte(version))
	buf = append(buf, byte(len(dcid)))
	buf = append(buf, dcid...)
	buf = append(buf, byte(len(scid)))
	buf = append(buf, scid...)
	buf = append(buf, 0x00) // token length / packet number placeholder

	return buf
}

var _ = Describe("ParseHeader", func() {
	dcid := []byte{0x01, 0x02, 0x03, 0x04}
	scid := []byte{0xAA, 0xBB}

	It("parses an Initial long header", func() {
		buf := longHeaderPacket(0b00, 1, dcid, scid)

		hdr, err := ParseHeader(buf)

		Expect(err).To(BeNil())
		Expect(hdr.Type).To(Equal(PacketTypeInitial))
		Expect(hdr.Version).To(Equal(uint32(1)))
		Expect(hdr.DestConnID).To(Equal(dcid))
		Expect(hdr.SrcConnID).To(Equal(scid))
	})

	It("parses a Handshake long header", func() {
		buf := longHeaderPacket(0b10, 1, dcid, scid)

		hdr, err := ParseHeader(buf)

		Expect(err).To(BeNil())
		Expect(hdr.Type).To(Equal(PacketTypeHandshake))
	})

	It("parses a Retry long header", func() {
		buf := longHeaderPacket(0b11, 1, dcid, scid)

		hdr, err := ParseHeader(buf)

		Expect(err).To(BeNil())
		Expect(hdr.Type).To(Equal(PacketTypeRetry))
	})

	It("recognizes version negotiation (version zero)", func() {
		buf := longHeaderPacket(0b00, 0, dcid, scid)

		hdr, err := ParseHeader(buf)

		Expect(err).To(BeNil())
		Expect(hdr.Type).To(Equal(PacketTypeVersionNegotiation))
		Expect(hdr.DestConnID).To(Equal(dcid))
	})

	It("treats a short header's remainder as the DCID candidate", func() {
		buf := append([]byte{0x40}, dcid...)

		hdr, err := ParseHeader(buf)

		Expect(err).To(BeNil())
		Expect(hdr.Type).To(Equal(PacketTypeShortHeader))
		Expect(hdr.DestConnID).To(Equal(dcid))
	})

	It("rejects an empty buffer", func() {
		_, err := ParseHeader(nil)

		Expect(err).NotTo(BeNil())
	})

	It("rejects a DCID length exceeding 20 bytes", func() {
		buf := []byte{0x80, 0, 0, 0, 1, 21}

		_, err := ParseHeader(buf)

		Expect(err).NotTo(BeNil())
	})

	It("rejects a truncated long header", func() {
		buf := []byte{0x80, 0, 0, 0}

		_, err := ParseHeader(buf)

		Expect(err).NotTo(BeNil())
	})
})

var _ = Describe("PacketHeader.Serialize", func() {
	dcid := []byte{0x01, 0x02, 0x03, 0x04}
	scid := []byte{0xAA, 0xBB}

	It("round-trips an Initial long header", func() {
		buf := longHeaderPacket(0b00, 1, dcid, scid)

		hdr, err := ParseHeader(buf)
		Expect(err).To(BeNil())

		again, err := ParseHeader(hdr.Serialize())
		Expect(err).To(BeNil())
		Expect(again).To(Equal(hdr))
	})

	It("round-trips a Handshake long header", func() {
		buf := longHeaderPacket(0b10, 1, dcid, scid)

		hdr, err := ParseHeader(buf)
		Expect(err).To(BeNil())

		again, err := ParseHeader(hdr.Serialize())
		Expect(err).To(BeNil())
		Expect(again).To(Equal(hdr))
	})

	It("round-trips a Retry long header", func() {
		buf := longHeaderPacket(0b11, 1, dcid, scid)

		hdr, err := ParseHeader(buf)
		Expect(err).To(BeNil())

		again, err := ParseHeader(hdr.Serialize())
		Expect(err).To(BeNil())
		Expect(again).To(Equal(hdr))
	})

	It("round-trips a version negotiation header", func() {
		buf := longHeaderPacket(0b00, 0, dcid, scid)

		hdr, err := ParseHeader(buf)
		Expect(err).To(BeNil())

		again, err := ParseHeader(hdr.Serialize())
		Expect(err).To(BeNil())
		Expect(again).To(Equal(hdr))
	})

	It("round-trips a short header", func() {
		buf := append([]byte{0x40}, dcid...)

		hdr, err := ParseHeader(buf)
		Expect(err).To(BeNil())

		again, err := ParseHeader(hdr.Serialize())
		Expect(err).To(BeNil())
		Expect(again).To(Equal(hdr))
	})

	It("Encode is an alias for Serialize", func() {
		buf := longHeaderPacket(0b00, 1, dcid, scid)

		hdr, err := ParseHeader(buf)
		Expect(err).To(BeNil())

		Expect(hdr.Encode()).To(Equal(hdr.Serialize()))
	})
})
