package tf

// Code mirrors the TF_Code enum from tensorflow/c/tf_status.h.
type Code int

const (
	CodeOK Code = iota
	CodeCancelled
	CodeUnknown
	CodeInvalidArgument
	CodeDeadlineExceeded
	CodeNotFound
	CodeAlreadyExists
	CodePermissionDenied
	CodeResourceExhausted
	CodeFailedPrecondition
	CodeAborted
	CodeOutOfRange
	CodeUnimplemented
	CodeInternal
	CodeUnavailable
	CodeDataLoss
	CodeUnauthenticated
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeCancelled:
		return "CANCELLED"
	case CodeUnknown:
		return "UNKNOWN"
	case CodeInvalidArgument:
		return "INVALID_ARGUMENT"
	case CodeDeadlineExceeded:
		return "DEADLINE_EXCEEDED"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeAlreadyExists:
		return "ALREADY_EXISTS"
	case CodePermissionDenied:
		return "PERMISSION_DENIED"
	case CodeResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case CodeFailedPrecondition:
		return "FAILED_PRECONDITION"
	case CodeAborted:
		return "ABORTED"
	case CodeOutOfRange:
		return "OUT_OF_RANGE"
	case CodeUnimplemented:
		return "UNIMPLEMENTED"
	case CodeInternal:
		return "INTERNAL"
	case CodeUnavailable:
		return "UNAVAILABLE"
	case CodeDataLoss:
		return "DATA_LOSS"
	case CodeUnauthenticated:
		return "UNAUTHENTICATED"
	default:
		return "UNRECOGNIZED"
	}
}

// DataType mirrors the TF_DataType enum from tensorflow/c/tf_datatype.h.
type DataType int

const (
	TypeFloat      DataType = 1
	TypeDouble     DataType = 2
	TypeInt32      DataType = 3
	TypeUint8      DataType = 4
	TypeInt16      DataType = 5
	TypeInt8       DataType = 6
	TypeString     DataType = 7
	TypeComplex64  DataType = 8
	TypeInt64      DataType = 9
	TypeBool       DataType = 10
	TypeQint8      DataType = 11
	TypeQuint8     DataType = 12
	TypeQint32     DataType = 13
	TypeBfloat16   DataType = 14
	TypeQint16     DataType = 15
	TypeQuint16    DataType = 16
	TypeUint16     DataType = 17
	TypeComplex128 DataType = 18
	TypeHalf       DataType = 19
	TypeResource   DataType = 20
	TypeVariant    DataType = 21
	TypeUint32     DataType = 22
	TypeUint64     DataType = 23
)
