package auditlog

import "bufio"

// Header is the schema line every audit log object starts with. A merged
// stream carries it exactly once, as its first line.
const Header = "ACCOUNT\tSTORE_ID\tSPACE_ID\tCONTENT_ID\tCONTENT_MD5\tCONTENT_SIZE\t" +
	"CONTENT_MIMETYPE\tCONTENT_PROPERTIES\tSPACE_ACLS\tSOURCE_SPACE_ID\t" +
	"SOURCE_CONTENT_ID\tTIMESTAMP\tACTION\tUSERNAME"

// skipHeader consumes the first line of every object after the first. It
// reports false only when the scanner failed; an empty object is fine.
func skipHeader(index int, sc *bufio.Scanner) bool {
	if index == 0 {
		return true
	}
	if sc.Scan() {
		return true
	}
	return sc.Err() == nil
}
